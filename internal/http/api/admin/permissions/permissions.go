// Package permissions names the admin routes a non-super admin may be granted.
package permissions

import (
	"strings"
)

// Definition describes an admin permission.
type Definition struct {
	Key    string `json:"key"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Label  string `json:"label"`
	Module string `json:"module"`
}

// Key builds a permission key from method and path.
func Key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition registered for key.
func Lookup(key string) (Definition, bool) {
	def, ok := definitionMap[key]
	return def, ok
}

// newDefinition builds a Definition with a normalized key.
func newDefinition(method, path, label, module string) Definition {
	upperMethod := strings.ToUpper(method)
	return Definition{
		Key:    Key(upperMethod, path),
		Method: upperMethod,
		Path:   path,
		Label:  label,
		Module: module,
	}
}

// definitions is the ordered list of permission definitions.
var definitions = []Definition{
	newDefinition("GET", "/v0/admin/dashboard", "View Dashboard", "Dashboard"),
	newDefinition("GET", "/v0/admin/mlm-stats", "View MLM Stats", "Dashboard"),

	newDefinition("GET", "/v0/admin/users", "List Users", "Users"),
	newDefinition("POST", "/v0/admin/users/:id/freeze", "Freeze or Unfreeze User", "Users"),
	newDefinition("PUT", "/v0/admin/users/:id/trading", "Set User Trading", "Users"),
	newDefinition("PUT", "/v0/admin/users/:id/withdrawal", "Set User Withdrawal", "Users"),

	newDefinition("GET", "/v0/admin/nfts", "List NFTs", "NFTs"),
	newDefinition("POST", "/v0/admin/nft-batches", "Create NFT Batch", "NFTs"),
	newDefinition("POST", "/v0/admin/nft-batches/:number/unlock", "Unlock NFT Batch", "NFTs"),

	newDefinition("POST", "/v0/admin/withdrawals/:id/settle", "Settle Withdrawal", "Withdrawals"),

	newDefinition("GET", "/v0/admin/settings", "List Settings", "Settings"),
	newDefinition("PUT", "/v0/admin/settings/:key", "Update Setting", "Settings"),

	newDefinition("GET", "/v0/admin/permissions", "List Permission Definitions", "Administrators"),
}

// definitionMap provides fast lookup for permission definitions.
var definitionMap = func() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}()
