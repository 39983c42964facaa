package linkage

import (
	"path/filepath"
	"strings"
)

// KeySeparator joins the accession and inventory parts of a codeAndNumber key.
const KeySeparator = "/"

// DeriveKey builds the codeAndNumber join key from an accession code and an
// inventory number.
//
// Fields are trimmed of surrounding whitespace and joined verbatim: keys are
// opaque strings, so leading zeros are significant ("007" and "7" are
// different inventories) and separator characters inside a field are kept
// as-is.
func DeriveKey(accession, inventory string) string {
	accession = strings.TrimSpace(accession)
	inventory = strings.TrimSpace(inventory)
	if accession == "" && inventory == "" {
		return ""
	}
	return accession + KeySeparator + inventory
}

// KeyFromPath derives the codeAndNumber key encoded in a file name. By
// convention the stem carries the accession code and inventory number
// separated by the first underscore, e.g. "ACC123_INV45.jpg". Returns false
// when the name follows no such convention.
func KeyFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	accession, inventory, ok := strings.Cut(stem, "_")
	if !ok || accession == "" || inventory == "" {
		return "", false
	}
	return DeriveKey(accession, inventory), true
}
