package wikibase

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// gatewayCall is one recorded Gateway invocation.
type gatewayCall struct {
	Method  string
	ID      string
	Data    string
	Hashes  []string
	BaseRev int64
	Summary string
}

// fakeGateway records calls and serves entities from memory. Each edit bumps
// the revision. failOn makes the named method fail once.
type fakeGateway struct {
	calls    []gatewayCall
	entities map[string]string
	rev      int64
	nextID   uint64
	failOn   map[string]error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{entities: map[string]string{}, rev: 100, nextID: 1000}
}

func (g *fakeGateway) record(c gatewayCall) error {
	g.calls = append(g.calls, c)
	if err, ok := g.failOn[c.Method]; ok {
		delete(g.failOn, c.Method)
		return err
	}
	return nil
}

func (g *fakeGateway) methods() []string {
	out := make([]string, len(g.calls))
	for i, c := range g.calls {
		out[i] = c.Method
	}
	return out
}

func (g *fakeGateway) bump() *PageInfo {
	g.rev++
	return &PageInfo{LastRevisionID: g.rev}
}

func (g *fakeGateway) GetEntities(_ context.Context, ids, languages []string) ([]json.RawMessage, error) {
	if err := g.record(gatewayCall{Method: "GetEntities", Data: strings.Join(ids, "|")}); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for _, id := range ids {
		if raw, ok := g.entities[strings.ToUpper(id)]; ok {
			out = append(out, json.RawMessage(raw))
		}
	}
	return out, nil
}

func (g *fakeGateway) GetEntityJSON(_ context.Context, id string) (json.RawMessage, error) {
	if err := g.record(gatewayCall{Method: "GetEntityJSON", ID: id}); err != nil {
		return nil, err
	}
	raw, ok := g.entities[strings.ToUpper(id)]
	if !ok {
		return json.RawMessage(fmt.Sprintf(`{"id":%q,"missing":""}`, id)), nil
	}
	return json.RawMessage(raw), nil
}

func (g *fakeGateway) GetEntitiesBySitelink(_ context.Context, sites, titles, _ []string) ([]json.RawMessage, error) {
	if err := g.record(gatewayCall{Method: "GetEntitiesBySitelink", Data: strings.Join(sites, "|") + ":" + strings.Join(titles, "|")}); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for _, raw := range g.entities {
		for _, t := range titles {
			if strings.Contains(raw, fmt.Sprintf(`"title":%q`, t)) {
				out = append(out, json.RawMessage(raw))
			}
		}
	}
	return out, nil
}

// CreateEntity stores the labels, descriptions and datatype of data.
func (g *fakeGateway) CreateEntity(_ context.Context, entityType string, data json.RawMessage, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "CreateEntity", ID: entityType, Data: string(data), BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	t, err := ParseEntityType(entityType)
	if err != nil {
		return nil, err
	}
	var patch map[string]any
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, err
	}
	g.nextID++
	id := NewEntityID(t, g.nextID).String()
	pi := g.bump()
	stored := map[string]any{"id": id, "type": entityType, "lastrevid": pi.LastRevisionID, "claims": map[string][]any{}}
	for _, k := range []string{"labels", "descriptions", "datatype"} {
		if v, ok := patch[k]; ok {
			stored[k] = v
		}
	}
	raw, _ := json.Marshal(stored)
	g.entities[id] = string(raw)
	return &EditResult{Entity: raw, PageInfo: pi}, nil
}

func (g *fakeGateway) EditEntity(_ context.Context, id string, data json.RawMessage, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "EditEntity", ID: id, Data: string(data), BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	pi := g.bump()
	return &EditResult{Entity: json.RawMessage(g.entities[strings.ToUpper(id)]), PageInfo: pi}, nil
}

func (g *fakeGateway) DeleteEntity(_ context.Context, title string, baseRev int64, summary string) error {
	return g.record(gatewayCall{Method: "DeleteEntity", ID: title, BaseRev: baseRev, Summary: summary})
}

func (g *fakeGateway) SetClaim(_ context.Context, claim json.RawMessage, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "SetClaim", Data: string(claim), BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	pi := g.bump()
	g.storeClaim(claim, pi.LastRevisionID)
	return &EditResult{Claim: claim, PageInfo: pi}, nil
}

func (g *fakeGateway) RemoveClaims(_ context.Context, ids []string, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "RemoveClaims", Hashes: ids, BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	return &EditResult{PageInfo: g.bump()}, nil
}

func (g *fakeGateway) SetReference(_ context.Context, statementID string, snaks json.RawMessage, order []string, hash string, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "SetReference", ID: statementID, Data: string(snaks), Hashes: order, BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	if hash == "" {
		hash = "refhash"
	}
	orderJSON, _ := json.Marshal(order)
	ref := fmt.Sprintf(`{"hash":%q,"snaks":%s,"snaks-order":%s}`, hash, snaks, orderJSON)
	return &EditResult{Reference: json.RawMessage(ref), PageInfo: g.bump()}, nil
}

func (g *fakeGateway) RemoveReferences(_ context.Context, statementID string, hashes []string, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "RemoveReferences", ID: statementID, Hashes: hashes, BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	return &EditResult{PageInfo: g.bump()}, nil
}

func (g *fakeGateway) SetQualifier(_ context.Context, claimID string, snakType SnakType, property string, value json.RawMessage, hash string, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "SetQualifier", ID: claimID, Data: snakType.String() + ":" + property + ":" + string(value), BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	claim := fmt.Sprintf(`{"id":%q,"type":"statement","rank":"normal",
		"mainsnak":{"snaktype":"novalue","property":"P1"},
		"qualifiers":{%q:[{"snaktype":%q,"property":%q,"hash":"qualhash","datavalue":{"type":"string","value":%s}}]},
		"qualifiers-order":[%q]}`, claimID, property, snakType.String(), property, value, property)
	return &EditResult{Claim: json.RawMessage(claim), PageInfo: g.bump()}, nil
}

func (g *fakeGateway) RemoveQualifiers(_ context.Context, claimID string, hashes []string, baseRev int64, summary string) (*EditResult, error) {
	if err := g.record(gatewayCall{Method: "RemoveQualifiers", ID: claimID, Hashes: hashes, BaseRev: baseRev, Summary: summary}); err != nil {
		return nil, err
	}
	return &EditResult{PageInfo: g.bump()}, nil
}

// storeClaim puts claim into the stored entity named by its GUID prefix,
// replacing a stored claim with the same GUID.
func (g *fakeGateway) storeClaim(claim json.RawMessage, rev int64) {
	var head struct {
		ID       string `json:"id"`
		MainSnak struct {
			Property string `json:"property"`
		} `json:"mainsnak"`
	}
	if json.Unmarshal(claim, &head) != nil {
		return
	}
	entityID, _, _ := strings.Cut(head.ID, "$")
	raw, ok := g.entities[entityID]
	if !ok {
		return
	}
	var stored map[string]any
	if json.Unmarshal([]byte(raw), &stored) != nil {
		return
	}
	var c any
	_ = json.Unmarshal(claim, &c)
	claims, _ := stored["claims"].(map[string]any)
	if claims == nil {
		claims = map[string]any{}
	}
	list, _ := claims[head.MainSnak.Property].([]any)
	list = slices.DeleteFunc(list, func(x any) bool {
		m, _ := x.(map[string]any)
		return m["id"] == head.ID
	})
	claims[head.MainSnak.Property] = append(list, c)
	stored["claims"] = claims
	stored["lastrevid"] = rev
	b, _ := json.Marshal(stored)
	g.entities[entityID] = string(b)
}
