package analyzer

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature sentinels for degenerate inputs.
const (
	SignatureEmpty   = "EMPTY"
	SignatureUnknown = "UNKNOWN"
)

// maxSignatureLen bounds the readable form; anything longer collapses to a
// hash so signatures stay usable as keys.
const maxSignatureLen = 100

// signatureOrder is the canonical clause ordering for pattern signatures.
// Two queries with the same clause set always produce the same signature,
// regardless of surface syntax order. This ordering is a versioned
// convention of this package; clauses outside the list are appended
// alphabetically.
var signatureOrder = []string{
	ClauseWith, ClauseCTE, ClauseSelect, ClauseDistinct, ClauseFrom,
	ClauseJoin, ClauseJoinInner, ClauseJoinLeft, ClauseJoinRight,
	ClauseJoinFull, ClauseJoinCross,
	ClauseWhere, ClauseGroup, ClauseHaving, ClauseOrder, ClauseLimit,
	ClauseOffset, ClauseUnion, ClauseIntersect, ClauseExcept,
	ClauseSubquery,
}

// signatureFor builds the pattern signature from a clause set: canonical
// head ordering, then any remaining clauses alphabetically, joined with
// "-". Long signatures degrade to "HASH_<md5 prefix>".
func signatureFor(clauses map[string]struct{}) string {
	if len(clauses) == 0 {
		return SignatureUnknown
	}

	inHead := make(map[string]struct{}, len(signatureOrder))
	var parts []string
	for _, c := range signatureOrder {
		inHead[c] = struct{}{}
		if _, ok := clauses[c]; ok {
			parts = append(parts, c)
		}
	}
	var rest []string
	for c := range clauses {
		if _, ok := inHead[c]; !ok {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	parts = append(parts, rest...)

	sig := strings.Join(parts, "-")
	if len(sig) > maxSignatureLen {
		sum := md5.Sum([]byte(sig))
		return "HASH_" + hex.EncodeToString(sum[:])[:16]
	}
	return sig
}

func sortedClauses(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
