package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainClause  = "dataservice/clause/v" + IRVersion
	DomainTree    = "dataservice/tree/v" + IRVersion
	DomainService = "dataservice/service/v" + IRVersion
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ClauseHash identifies a query by its raw clause text.
// The engine keys its plan cache on it: identical text against the same
// service always yields the same plan.
func ClauseHash(service, fields, where string) (string, error) {
	obj := IRObject{
		"service": IRString(service),
		"fields":  IRString(fields),
		"where":   IRString(where),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ClauseHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainClause, canonical), nil
}

// TreeHash identifies a parsed tree by its canonical projection.
// Two trees with the same shape, joins, negations and operands hash equal.
func TreeHash(tree IRObject) (string, error) {
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("TreeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}

// MustTreeHash is like TreeHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTreeHash(tree IRObject) string {
	h, err := TreeHash(tree)
	if err != nil {
		panic(err)
	}
	return h
}

// ServiceToIR projects a service definition onto an IRObject.
// Column order is preserved; indexes are implied by position.
func ServiceToIR(spec ServiceSpec) IRObject {
	cols := make(IRArray, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = IRObject{
			"name": IRString(c.Name),
			"type": IRString(string(c.Type)),
		}
	}
	return IRObject{
		"name":    IRString(spec.Name),
		"table":   IRString(spec.TableName()),
		"purpose": IRString(spec.Purpose),
		"columns": cols,
	}
}

// ServiceHash identifies a service definition. Two definitions with the
// same name, table and column layout hash equal regardless of source file.
func ServiceHash(spec ServiceSpec) (string, error) {
	canonical, err := MarshalCanonical(ServiceToIR(spec))
	if err != nil {
		return "", fmt.Errorf("ServiceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainService, canonical), nil
}
