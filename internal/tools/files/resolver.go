package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves and validates workspace-relative paths.
type Resolver struct {
	Root string
}

// sensitiveSubstrings flags path fragments that commonly hold secrets;
// matched case-insensitively against the resolved path.
var sensitiveSubstrings = []string{
	".env",
	"id_rsa", "id_ed25519",
	"private_key", "secret_key", "credentials", "private", "secret", "credential",
	string(os.PathSeparator) + ".ssh" + string(os.PathSeparator),
	string(os.PathSeparator) + ".aws" + string(os.PathSeparator),
	string(os.PathSeparator) + ".kube" + string(os.PathSeparator),
}

var sensitiveSuffixes = []string{".key", ".p12", ".pfx"}

// Resolve returns an absolute, cleaned path within the workspace root,
// rejecting paths that escape the root or land on a path the capability
// guard denies.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	root := strings.TrimSpace(r.Root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes workspace")
	}
	if denied(targetAbs) {
		return "", fmt.Errorf("path denied by capability guard")
	}
	return targetAbs, nil
}

func denied(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range sensitiveSubstrings {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	for _, suf := range sensitiveSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}
