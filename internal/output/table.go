// Package output renders query results for the terminal.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sternrassler/swapi-gateway/pkg/query"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

var columns = map[swapi.EntityType][]string{
	swapi.EntityCharacter: {"id", "name", "gender", "birth_year", "eye_color", "hair_color"},
	swapi.EntityPlanet:    {"id", "name", "climate", "terrain"},
	swapi.EntityStarship:  {"id", "name", "model", "starship_class", "manufacturer"},
	swapi.EntityFilm:      {"id", "title", "episode_id", "release_date", "director"},
}

// TablePage renders one page of results as a table with a paging footer.
func TablePage(t swapi.EntityType, page *query.Page) (string, error) {
	if page == nil {
		return "", nil
	}
	cols, ok := columns[t]
	if !ok {
		return "", fmt.Errorf("no table layout for %q", t)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	tw.AppendHeader(header)

	for _, result := range page.Results {
		fields, err := flatten(result)
		if err != nil {
			return "", err
		}
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = fields[c]
		}
		tw.AppendRow(row)
	}

	footer := make(table.Row, len(cols))
	footer[len(cols)-1] = fmt.Sprintf("page %d/%d, %d results", page.Page, page.TotalPages, page.Count)
	tw.AppendFooter(footer)

	return tw.Render(), nil
}

// TableSummaries renders a list of summaries, e.g. a correlated lookup.
func TableSummaries[S any](t swapi.EntityType, items []S) (string, error) {
	results := make([]any, len(items))
	for i := range items {
		results[i] = items[i]
	}
	return TablePage(t, &query.Page{Results: results, Count: len(items), Page: 1, TotalPages: 1})
}

// flatten turns a summary struct into its JSON field map.
func flatten(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return fields, nil
}
