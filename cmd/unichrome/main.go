// Command unichrome is a small inspection CLI over a unichrome database
// directory: list/stats collections and run ad-hoc vector searches without
// writing a Go program.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xDarkicex/unichrome"
	"github.com/xDarkicex/unichrome/internal/filter"
)

var (
	storagePath string
	outputJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "unichrome",
	Short: "Inspect and query a unichrome vector database",
	Long:  "unichrome is a command-line tool for inspecting collections and running searches against a unichrome database directory.",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display database and collection statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		stats := db.Stats()

		if outputJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Collections: %d\n", stats.CollectionCount)
		fmt.Printf("Uptime: %s\n", stats.Uptime)
		for name, cs := range stats.Collections {
			fmt.Printf("  %s: %d documents, dim=%d, cache_hit_rate=%.2f%%, quantized=%v, persistent=%v\n",
				name, cs.DocumentCount, cs.Dimension, cs.DistanceCacheHitRate*100, cs.HasQuantization, cs.Persistent)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every collection known to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		names := db.ListCollections()
		if outputJSON {
			data, err := json.MarshalIndent(names, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <collection> <query-file>",
	Short: "Search a collection for the nearest documents to a query vector",
	Long:  "The query file must contain a JSON array of floats, e.g. [0.1, 0.2, 0.3].",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collectionName, queryFile := args[0], args[1]
		k, err := cmd.Flags().GetInt("k")
		if err != nil {
			return err
		}
		filterExprs, err := cmd.Flags().GetStringArray("filter")
		if err != nil {
			return err
		}

		vector, err := readQueryVector(queryFile)
		if err != nil {
			return fmt.Errorf("read query vector: %w", err)
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		collection, err := db.GetCollection(collectionName)
		if err != nil {
			return fmt.Errorf("get collection %q: %w", collectionName, err)
		}

		ctx := context.Background()
		query := collection.Query(ctx).WithVector(vector).Limit(k)

		for _, expr := range filterExprs {
			f, err := parseFilterExpr(expr)
			if err != nil {
				return fmt.Errorf("parse filter %q: %w", expr, err)
			}
			query = query.WithFilter(f)
		}

		results, err := query.Execute()
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if outputJSON {
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Found %d results (took %s):\n", len(results.Results), results.Took)
		for i, r := range results.Results {
			fmt.Printf("%d. id=%d score=%.6f text=%q\n", i+1, r.ID, r.Score, truncate(r.Text, 60))
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <collection>",
	Short: "Print a collection's name, document count and dimension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collectionName := args[0]

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		collection, err := db.GetCollection(collectionName)
		if err != nil {
			return fmt.Errorf("get collection %q: %w", collectionName, err)
		}

		stats := collection.Stats()
		if outputJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Collection %q: %d documents, dim=%d\n", stats.Name, stats.DocumentCount, stats.Dimension)
		return nil
	},
}

// filterExprParser has no schema: a CLI caller never declares field types up
// front, so values are type-inferred the way FilterParser.ParseValue does
// when schema is nil (bool, then int, then float, then time, else string).
var filterExprParser = filter.NewFilterParser(nil)

// parseFilterExpr parses a single --filter expression into a filter.Filter.
// Supported forms mirror spec's metadata operator set: "field==value",
// "field!=value", "field>=value", "field<=value", "field>value",
// "field<value", and "field contains value".
func parseFilterExpr(expr string) (filter.Filter, error) {
	expr = strings.TrimSpace(expr)

	if idx := strings.Index(strings.ToLower(expr), " contains "); idx >= 0 {
		field := strings.TrimSpace(expr[:idx])
		value := strings.TrimSpace(expr[idx+len(" contains "):])
		if field == "" || value == "" {
			return nil, fmt.Errorf("malformed contains expression %q", expr)
		}
		return filter.NewContainsFilter(field, value), nil
	}

	for _, op := range []string{"!=", "==", ">=", "<=", ">", "<"} {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}

		field := strings.TrimSpace(expr[:idx])
		valueStr := strings.TrimSpace(expr[idx+len(op):])
		if field == "" || valueStr == "" {
			return nil, fmt.Errorf("malformed filter expression %q", expr)
		}

		value, err := filterExprParser.ParseValue(field, valueStr)
		if err != nil {
			return nil, err
		}

		switch op {
		case "==":
			return filter.NewEqualityFilter(field, value), nil
		case "!=":
			return filter.NewInequalityFilter(field, value), nil
		case ">=":
			return filter.NewRangeFilter(field, value, nil), nil
		case "<=":
			return filter.NewRangeFilter(field, nil, value), nil
		case ">":
			return filter.NewGreaterThanFilter(field, value), nil
		case "<":
			return filter.NewLessThanFilter(field, value), nil
		}
	}

	return nil, fmt.Errorf("unrecognized filter expression %q (expected field<op>value or field contains value)", expr)
}

func readQueryVector(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var floats []float64
	if err := json.Unmarshal(data, &floats); err != nil {
		return nil, err
	}
	vector := make([]float32, len(floats))
	for i, f := range floats {
		vector[i] = float32(f)
	}
	return vector, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func openDatabase() (*unichrome.Database, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path not specified")
	}
	return unichrome.New(unichrome.WithStoragePath(storagePath))
}

func parseVector(str string) []float32 {
	var vector []float32
	for _, part := range strings.Split(str, ",") {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		vector = append(vector, float32(val))
	}
	return vector
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storagePath, "path", "p", "./data", "Database storage directory")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	searchCmd.Flags().IntP("k", "k", 10, "Number of nearest results to return")
	searchCmd.Flags().StringArray("filter", nil, `Metadata filter expression, e.g. "price>100" or "tag contains foo" (repeatable)`)

	rootCmd.AddCommand(statsCmd, listCmd, searchCmd, dumpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
