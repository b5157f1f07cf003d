package domain

// Zero overwrites b with zeros. Callers use it on payload secrets once they
// are no longer needed.
func Zero(b []byte) {
	clear(b)
}
