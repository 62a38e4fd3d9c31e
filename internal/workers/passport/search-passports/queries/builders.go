package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"passport-workers/internal/scoring"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrMissingIndex  = errors.New("index name is required")
	ErrInvalidFilter = errors.New("invalid filter")
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

// PassportQuery filters the investor marketplace. Zero values mean "any".
type PassportQuery struct {
	MinScore       *int
	MaxScore       *int
	Sector         string
	OverallRisk    string
	Interpretation string
	From           int
	Size           int
}

// Normalize validates q and clamps paging.
func (q PassportQuery) Normalize() (PassportQuery, error) {
	for _, bound := range []*int{q.MinScore, q.MaxScore} {
		if bound != nil && (*bound < 0 || *bound > 100) {
			return q, fmt.Errorf("%w: score bounds must be within 0-100", ErrInvalidFilter)
		}
	}
	if q.MinScore != nil && q.MaxScore != nil && *q.MinScore > *q.MaxScore {
		return q, fmt.Errorf("%w: minScore %d is above maxScore %d", ErrInvalidFilter, *q.MinScore, *q.MaxScore)
	}
	if q.OverallRisk != "" {
		switch scoring.RiskLevel(strings.ToLower(q.OverallRisk)) {
		case scoring.RiskLow, scoring.RiskMedium, scoring.RiskHigh:
			q.OverallRisk = strings.ToLower(q.OverallRisk)
		default:
			return q, fmt.Errorf("%w: overallRisk %q", ErrInvalidFilter, q.OverallRisk)
		}
	}
	if q.From < 0 {
		return q, fmt.Errorf("%w: from must not be negative", ErrInvalidFilter)
	}
	switch {
	case q.Size <= 0:
		q.Size = DefaultSize
	case q.Size > MaxSize:
		q.Size = MaxSize
	}
	return q, nil
}

// Body builds the search body: filters only, ranked by score then recency.
func (q PassportQuery) Body() map[string]interface{} {
	filters := []interface{}{}

	scoreRange := map[string]interface{}{}
	if q.MinScore != nil {
		scoreRange["gte"] = *q.MinScore
	}
	if q.MaxScore != nil {
		scoreRange["lte"] = *q.MaxScore
	}
	if len(scoreRange) > 0 {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"fundabilityScore": scoreRange},
		})
	}

	for _, term := range [][2]string{
		{"sector", q.Sector},
		{"overallRisk", q.OverallRisk},
		{"interpretation", q.Interpretation},
	} {
		if term[1] == "" {
			continue
		}
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{term[0]: term[1]},
		})
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(filters) > 0 {
		query = map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		}
	}

	return map[string]interface{}{
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{"fundabilityScore": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"track_total_hits": true,
	}
}

// BuildSearchRequest normalizes q and returns the request to send.
func BuildSearchRequest(index string, q PassportQuery) (*esapi.SearchRequest, PassportQuery, error) {
	if index == "" {
		return nil, q, ErrMissingIndex
	}
	q, err := q.Normalize()
	if err != nil {
		return nil, q, err
	}

	body, err := json.Marshal(q.Body())
	if err != nil {
		return nil, q, err
	}

	from, size := q.From, q.Size
	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}, q, nil
}
