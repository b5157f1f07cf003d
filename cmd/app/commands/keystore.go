package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	custodyService "github.com/allisson/archivist/internal/custody/service"
)

// RunCreateKeystoreEntry generates an RSA key for the keystore custody backend.
// With an output path the PEM block is appended to that file, otherwise it is
// written to writer. The encoded public key is always printed so operators can
// match archived records to the entry.
func RunCreateKeystoreEntry(
	logger *slog.Logger,
	writer io.Writer,
	alias string,
	bits int,
	outputPath string,
) error {
	if alias == "" {
		return fmt.Errorf("alias is required")
	}

	logger.Info("generating keystore entry", slog.String("alias", alias), slog.Int("bits", bits))

	encoded, entry, err := custodyService.GenerateKeystoreEntry(alias, bits)
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, _ = writer.Write(encoded)
	} else {
		file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // operator supplied path
		if err != nil {
			return fmt.Errorf("failed to open keystore: %w", err)
		}
		if _, err := file.Write(encoded); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write keystore: %w", err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to close keystore: %w", err)
		}
		logger.Info("keystore entry appended", slog.String("path", outputPath))
	}

	_, _ = fmt.Fprintf(writer, "Alias:       %s\n", entry.Alias)
	_, _ = fmt.Fprintf(writer, "Public key:  %s\n", entry.PublicKey.Encoded)
	return nil
}
