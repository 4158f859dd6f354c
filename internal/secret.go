package internal

import (
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// secretPrefix marks a 1Password secret reference
const secretPrefix = "op://"

var (
	// CommandContext allows overriding command creation for testing
	CommandContext = exec.CommandContext
	// LookPath allows overriding executable lookup for testing
	LookPath = exec.LookPath
)

// IsSecretReference reports whether value is a 1Password reference
func IsSecretReference(value string) bool {
	return strings.HasPrefix(value, secretPrefix)
}

// ResolveSecretReference resolves a 1Password secret reference
// (e.g. op://vault/item/field) with the op CLI. Other values are returned
// unchanged. The boolean reports whether value was a reference.
func ResolveSecretReference(ctx context.Context, value string) (string, bool, error) {
	if !IsSecretReference(value) {
		return value, false, nil
	}

	if parts := strings.Split(strings.TrimPrefix(value, secretPrefix), "/"); len(parts) < 3 {
		return "", true, errors.Newf("malformed secret reference %q: want op://vault/item/field", value)
	}

	if _, err := LookPath("op"); err != nil {
		return "", true, errors.Wrap(err, "1Password CLI (op) not found in PATH")
	}

	output, err := CommandContext(ctx, "op", "read", value).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", true, errors.Newf("failed to read secret from 1Password: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", true, errors.Wrap(err, "failed to read secret from 1Password")
	}

	return strings.TrimSpace(string(output)), true, nil
}
