package wikibase

import "encoding/json"

// Qualifier is a snak attached to a claim to refine its meaning.
type Qualifier struct {
	*Snak
	claim *Claim
	hash  string
}

// Claim returns the claim the qualifier belongs to.
func (q *Qualifier) Claim() *Claim { return q.claim }

// Hash returns the server-assigned hash, or "" before the first save.
func (q *Qualifier) Hash() string { return q.hash }

// Encode returns the snak wire object, with the hash when known.
func (q *Qualifier) Encode() (map[string]any, error) {
	out, err := q.Snak.Encode()
	if err != nil {
		return nil, err
	}
	if q.hash != "" {
		out["hash"] = q.hash
	}
	return out, nil
}

func decodeQualifier(c *Claim, raw json.RawMessage) (*Qualifier, error) {
	s, hash, err := decodeSnakWithHash(raw)
	if err != nil {
		return nil, err
	}
	return &Qualifier{Snak: s, claim: c, hash: hash}, nil
}
