package eia

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"

	"github.com/eiadata/go-client/pkg/request"
	"github.com/eiadata/go-client/pkg/table"
)

// SeriesEndpoint is the path of the series API.
const SeriesEndpoint = "series/"

// MaxSeriesPerRequest is the limit of the series API, longer inputs are split to more requests.
const MaxSeriesPerRequest = 100

// Series is one named time series with its metadata and ordered (period, value) observations.
type Series struct {
	// SeriesID, Name, Units, Frequency and Updated are the well-known metadata fields.
	SeriesID  string
	Name      string
	Units     string
	Frequency string
	Updated   Time
	// Metadata holds all metadata fields except "data", in the response order.
	Metadata *orderedmap.OrderedMap
	// Data holds the ordered (period, value) observations.
	Data []DataPoint
}

// DataPoint is one (period, value) observation.
// The API returns null values for periods without an observation, then the Null flag is set.
type DataPoint struct {
	Period string
	Value  float64
	Null   bool
}

// seriesResult is one batch response, request metadata outside the series list is discarded.
type seriesResult struct {
	Series []*Series `json:"series"`
}

// SeriesQuery is a request for one or more named series.
//
// The series identifiers are partitioned to batches at construction,
// each batch is sent as one request, strictly in order, see the List method.
type SeriesQuery struct {
	api     *API
	batches []string
	params  map[string]any
}

// Series is a shortcut for the NewSeriesQuery function.
func (a *API) Series(ids ...string) *SeriesQuery {
	return NewSeriesQuery(a, ids...)
}

// NewSeriesQuery creates a query for the series with the given identifiers.
// The identifiers are joined by ";" to batches of at most MaxSeriesPerRequest,
// in the input order. The batches are immutable afterwards.
func NewSeriesQuery(api *API, ids ...string) *SeriesQuery {
	return &SeriesQuery{api: api, batches: batchSeriesIDs(ids, MaxSeriesPerRequest), params: make(map[string]any)}
}

// WithNum limits the number of observations returned per series, most recent first.
func (q *SeriesQuery) WithNum(n int) *SeriesQuery {
	q.params["num"] = n
	return q
}

// WithStart limits the observations to periods at or after the given period.
func (q *SeriesQuery) WithStart(period string) *SeriesQuery {
	q.params["start"] = period
	return q
}

// WithEnd limits the observations to periods at or before the given period.
func (q *SeriesQuery) WithEnd(period string) *SeriesQuery {
	q.params["end"] = period
	return q
}

// Batches returns the ";"-joined identifier batches, one request is sent per batch.
func (q *SeriesQuery) Batches() []string {
	out := make([]string, len(q.batches))
	copy(out, q.batches)
	return out
}

func batchSeriesIDs(ids []string, limit int) []string {
	// Zero identifiers produce one empty batch, it is sent to the service as-is.
	if len(ids) == 0 {
		return []string{""}
	}
	var out []string
	for len(ids) > limit {
		out = append(out, strings.Join(ids[:limit], ";"))
		ids = ids[limit:]
	}
	return append(out, strings.Join(ids, ";"))
}

// batchRequest creates the request of one identifier batch.
func (q *SeriesQuery) batchRequest(batch string) request.APIRequest[*seriesResult] {
	data := map[string]any{"series_id": batch}
	for k, v := range q.params {
		data[k] = v
	}
	result := &seriesResult{}
	return request.NewAPIRequest(result, q.api.submitRequest(SeriesEndpoint, data).WithResult(result))
}

// batchIterator is a lazy, single-pass iteration over the batch responses.
// Each response is fully consumed before the next request is sent.
type batchIterator struct {
	query *SeriesQuery
	index int
}

func (i *batchIterator) next(ctx context.Context) (*seriesResult, bool, error) {
	if i.index >= len(i.query.batches) {
		return nil, false, nil
	}
	batch := i.query.batches[i.index]
	i.index++

	result, err := i.query.batchRequest(batch).Send(ctx)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// List sends one request per batch and returns the flattened list of the series,
// in the input order. A batch response without the series list contributes zero
// records. The first error aborts the whole collection, nothing partial is returned.
func (q *SeriesQuery) List(ctx context.Context) ([]*Series, error) {
	var out []*Series
	it := &batchIterator{query: q}
	for {
		result, found, err := it.next(ctx)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		out = append(out, result.Series...)
	}
	return out, nil
}

// Table returns all series observations as one table with the "period" and
// "value" columns. By default, each row is augmented with the metadata of its
// series, the metadata columns are a union over all series in the first-seen
// order. Use the WithoutMetadata option to get the two-column form.
func (q *SeriesQuery) Table(ctx context.Context, opts ...TableOption) (*table.Table, error) {
	cfg := newTableConfig(opts)
	records, err := q.List(ctx)
	if err != nil {
		return nil, err
	}

	// Metadata columns, union over all records, in the first-seen order
	var metaCols []string
	if cfg.includeMetadata {
		seen := make(map[string]bool)
		for _, s := range records {
			for _, k := range s.Metadata.Keys() {
				if !seen[k] {
					seen[k] = true
					metaCols = append(metaCols, k)
				}
			}
		}
	}

	out := table.New(append([]string{"period", "value"}, metaCols...)...)
	for _, s := range records {
		// Identical metadata cells for every row of one series
		meta := make([]string, len(metaCols))
		for j, k := range metaCols {
			if v, found := s.Metadata.Get(k); found {
				meta[j] = cast.ToString(v)
			}
		}
		for _, p := range s.Data {
			out.AddRow(seriesRow{point: p, meta: meta})
		}
	}
	return out, nil
}

type seriesRow struct {
	point DataPoint
	meta  []string
}

func (r seriesRow) Cells() []string {
	value := ""
	if !r.point.Null {
		value = cast.ToString(r.point.Value)
	}
	return append([]string{r.point.Period, value}, r.meta...)
}

func (s *Series) UnmarshalJSON(data []byte) error {
	m := orderedmap.New()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}

	// Extract (period, value) pairs
	if raw, found := m.Get("data"); found {
		points, ok := raw.([]any)
		if !ok {
			return fmt.Errorf(`unexpected type "%T" of the series "data" field`, raw)
		}
		s.Data = make([]DataPoint, 0, len(points))
		for _, item := range points {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return fmt.Errorf(`unexpected data point "%v", expected a [period, value] pair`, item)
			}
			point := DataPoint{Period: cast.ToString(pair[0])}
			if pair[1] == nil {
				point.Null = true
			} else {
				value, err := cast.ToFloat64E(pair[1])
				if err != nil {
					return fmt.Errorf(`unexpected value of the data point "%s": %w`, point.Period, err)
				}
				point.Value = value
			}
			s.Data = append(s.Data, point)
		}
		m.Delete("data")
	}

	// Everything else is metadata
	s.Metadata = m
	s.SeriesID = mapStringField(m, "series_id")
	s.Name = mapStringField(m, "name")
	s.Units = mapStringField(m, "units")
	s.Frequency = mapStringField(m, "f")
	if v := mapStringField(m, "updated"); v != "" {
		updated, err := ParseTime(v)
		if err != nil {
			return fmt.Errorf(`cannot parse the "updated" field of the series "%s": %w`, s.SeriesID, err)
		}
		s.Updated = updated
	}
	return nil
}

func mapStringField(m *orderedmap.OrderedMap, key string) string {
	if v, found := m.Get(key); found {
		return cast.ToString(v)
	}
	return ""
}
