package domain

// TenantCount reports how many records a tenant holds in each store.
type TenantCount struct {
	TenantHash string
	ShortTerm  int64
	Archived   int64
}
