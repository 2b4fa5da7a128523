package chi

import (
	"time"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/expansion"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

func searchRequestFromAPI(req SearchRequest) (request.Request, error) {
	p := request.Params{
		Collections: req.Collections,
		Condition:   req.Query,
		Text:        req.Text,
		From:        req.From,
		Size:        req.Size,
		Fields:      req.Fields,
		Highlight:   req.Highlight,
	}
	if req.Sort != nil {
		p.Sort = &request.Sort{Field: req.Sort.Field, Order: request.Order(req.Sort.Order)}
	}
	for _, a := range req.Aggs {
		p.Aggregations = append(p.Aggregations, request.Aggregation{Name: a.Name, Field: a.Field, Size: a.Size})
	}
	for _, e := range req.Expand {
		spec, err := expansion.New(e.Name, e.Collection, e.FromField, e.ToField, e.Many, e.Fields)
		if err != nil {
			return request.Request{}, err
		}
		p.Expand = append(p.Expand, spec)
	}
	return request.New(p)
}

func pageToAPI(page result.Page) SearchResponse {
	hits := make([]SearchHit, len(page.Hits))
	for i := range page.Hits {
		h := &page.Hits[i]
		hits[i] = SearchHit{
			Collection: h.Collection(),
			ID:         h.ID(),
			Score:      h.Score(),
			Source:     h.Source(),
			Highlight:  h.Highlight(),
		}
	}

	var aggs map[string][]Bucket
	if len(page.Aggregations) > 0 {
		aggs = make(map[string][]Bucket, len(page.Aggregations))
		for name, bs := range page.Aggregations {
			out := make([]Bucket, len(bs))
			for i, b := range bs {
				out[i] = Bucket{Key: b.Key, Count: b.Count}
			}
			aggs[name] = out
		}
	}

	colls := page.Collections
	if colls == nil {
		colls = []string{}
	}
	return SearchResponse{Total: page.Total, Hits: hits, Aggregations: aggs, Collections: colls}
}

func documentToAPI(label string, doc domdoc.Document) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID(),
		Collection: domcol.NormalizeLabel(label),
		Source:     doc.Body(),
	}
}

func collectionToAPI(c domcol.Collection) Collection {
	fields := make([]FieldDefinition, len(c.Fields()))
	for i, f := range c.Fields() {
		fields[i] = FieldDefinition{Name: f.Name(), Type: string(f.FieldType())}
	}
	return Collection{
		Label:         c.Label(),
		Collection:    c.Name(),
		Fields:        fields,
		DocumentCount: c.DocCount(),
		CreatedAt:     time.UnixMilli(c.CreatedAt()).UTC(),
	}
}
