package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/swapi-gateway/internal/output"
	"github.com/Sternrassler/swapi-gateway/pkg/query"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

type queryOptions struct {
	page     int
	pageSize int
	search   string
	sortBy   string
	order    string
	filmID   int
	filters  map[string]string
	asJSON   bool
}

func newQueryCmd() *cobra.Command {
	opts := &queryOptions{}

	queryCmd := &cobra.Command{
		Use:   "query <characters|planets|starships|films>",
		Short: "Query a collection and print one page of results",
		Long: `Query a whole collection with search, filters and sorting, then print
one page as a table.

Examples:
  swapi-proxy query characters --search sky --sort-by name
  swapi-proxy query planets --filter climate=arid --sort-by population --order desc
  swapi-proxy query starships --film-id 1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := swapi.ParseEntityType(args[0])
			if err != nil {
				return err
			}

			gw, err := buildGateway(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer gw.Close()

			page, err := gw.engine.Query(cmd.Context(), opts.params(t))
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), t, page, opts.asJSON)
		},
	}

	f := queryCmd.Flags()
	f.IntVar(&opts.page, "page", 1, "page number")
	f.IntVar(&opts.pageSize, "page-size", query.DefaultPageSize, "results per page")
	f.StringVar(&opts.search, "search", "", "case-insensitive substring search")
	f.StringVar(&opts.sortBy, "sort-by", "", "sort field (default depends on the collection)")
	f.StringVar(&opts.order, "order", string(query.OrderAsc), "sort order: asc or desc")
	f.IntVar(&opts.filmID, "film-id", 0, "only records appearing in this film")
	f.StringToStringVar(&opts.filters, "filter", nil, "exact-match filter, e.g. gender=female (repeatable)")
	f.BoolVar(&opts.asJSON, "json", false, "print the page as JSON")

	return queryCmd
}

func (o *queryOptions) params(t swapi.EntityType) query.Params {
	return query.Params{
		Type:     t,
		Page:     o.page,
		PageSize: o.pageSize,
		Search:   o.search,
		Filters:  o.filters,
		SortBy:   o.sortBy,
		Order:    query.Order(strings.ToLower(o.order)),
		FilmID:   o.filmID,
	}
}

func writePage(w io.Writer, t swapi.EntityType, page *query.Page, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	rendered, err := output.TablePage(t, page)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}
