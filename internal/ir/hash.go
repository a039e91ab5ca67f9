package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPlacement = "fxdispatch/placement/v1"
	DomainCatalog   = "fxdispatch/catalog/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PlacementDigest computes the content hash of a placement.
// Struct fields marshal in declaration order, so equal placements hash equal.
func PlacementDigest(p Placement) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("PlacementDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlacement, data), nil
}

// CatalogHash computes the content hash of a compiled catalog.
// Dispatch logs carry it so a trace can be tied to the catalog that produced it.
func CatalogHash(c Catalog) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("CatalogHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCatalog, data), nil
}

// MustPlacementDigest is like PlacementDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPlacementDigest(p Placement) string {
	d, err := PlacementDigest(p)
	if err != nil {
		panic(err)
	}
	return d
}

// MustCatalogHash is like CatalogHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCatalogHash(c Catalog) string {
	h, err := CatalogHash(c)
	if err != nil {
		panic(err)
	}
	return h
}
