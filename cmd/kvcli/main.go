// Command kvcli is a small cobra-based client for talking to a linekv
// node over its line-framed TCP protocol, grounded on remote_interface.py
// and the teacher's cmd/client cobra launcher.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"linekv/internal/client"
)

var (
	flagHost    string
	flagPort    int
	flagTimeout time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kvcli",
	Short: "linekv command-line client",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "127.0.0.1", "node host")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 9000, "node port")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 3*time.Second, "request timeout")

	rootCmd.AddCommand(getCmd, setCmd, deleteCmd, bulkSetCmd, searchValueCmd, searchTextCmd, addVectorCmd, vectorSearchCmd, whoIsPrimaryCmd)
}

func newClient() *client.Client {
	return client.New(flagHost, flagPort, flagTimeout)
}

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "get the value bound to a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(v)
	},
}

var setCmd = &cobra.Command{
	Use:   "set KEY JSON-VALUE",
	Short: "set key to a JSON-encoded value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value any
		if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
			return fmt.Errorf("kvcli: value must be valid JSON: %w", err)
		}
		return newClient().Set(args[0], value)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "delete a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newClient().Delete(args[0])
	},
}

var bulkSetCmd = &cobra.Command{
	Use:   "bulk-set JSON-ARRAY",
	Short: `set many keys at once, e.g. '[["k1","v1"],["k2","v2"]]'`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var items [][2]any
		if err := json.Unmarshal([]byte(args[0]), &items); err != nil {
			return fmt.Errorf("kvcli: items must be a JSON array of [key,value] pairs: %w", err)
		}
		return newClient().BulkSet(items)
	},
}

var searchValueCmd = &cobra.Command{
	Use:   "search-value JSON-VALUE",
	Short: "find keys bound to exactly the given value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value any
		if err := json.Unmarshal([]byte(args[0]), &value); err != nil {
			return fmt.Errorf("kvcli: value must be valid JSON: %w", err)
		}
		keys, err := newClient().SearchByValue(value)
		if err != nil {
			return err
		}
		return printJSON(keys)
	},
}

var searchTextCmd = &cobra.Command{
	Use:   "search-text TERM",
	Short: "find keys whose text contains TERM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := newClient().SearchText(args[0])
		if err != nil {
			return err
		}
		return printJSON(keys)
	},
}

var addVectorCmd = &cobra.Command{
	Use:   "add-vector KEY JSON-VECTOR",
	Short: `bind a key to a numeric vector, e.g. '[1,0,0.5]'`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vec, err := parseVector(args[1])
		if err != nil {
			return err
		}
		return newClient().AddVector(args[0], vec)
	},
}

var vectorSearchCmd = &cobra.Command{
	Use:   "vector-search JSON-VECTOR",
	Short: "find the top-k keys ranked by cosine similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		vec, err := parseVector(args[0])
		if err != nil {
			return err
		}
		results, err := newClient().VectorSearch(vec, topK)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

func init() {
	vectorSearchCmd.Flags().Int("top-k", 5, "number of results to return")
}

var whoIsPrimaryCmd = &cobra.Command{
	Use:   "who-is-primary",
	Short: "ask the node which role it currently holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := newClient().WhoIsPrimary()
		if err != nil {
			return err
		}
		fmt.Println(role)
		return nil
	},
}

func parseVector(raw string) ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("kvcli: vector must be a JSON array of numbers: %w", err)
	}
	return vec, nil
}

func printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
