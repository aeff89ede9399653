package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ciphera-net/website/internal/faq"
)

// faqOptions are the flags of the faq subcommand.
type faqOptions struct {
	query    string
	category string
	file     string
	count    bool
}

func (o *faqOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.query, "query", "q", "", "case-insensitive text to match in questions and answers")
	fs.StringVarP(&o.category, "category", "c", "", "category id to restrict to (general, security, features, technical)")
	fs.StringVar(&o.file, "file", "content/faq.yaml", "FAQ dataset; the built-in set is used when missing")
	fs.BoolVar(&o.count, "count", false, "print only the number of matching questions")
}

func newFAQCmd() *cobra.Command {
	var opts faqOptions
	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Filter the FAQ dataset and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := faq.Load(opts.file)
			if err != nil {
				return err
			}
			if opts.category != "" {
				if _, ok := faq.Find(categories, opts.category); !ok {
					return fmt.Errorf("unknown category %q", opts.category)
				}
			}
			result := faq.Filter(categories, opts.query, opts.category)
			out := cmd.OutOrStdout()
			if opts.count {
				_, err := fmt.Fprintln(out, faq.Count(result))
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	opts.addFlags(cmd.Flags())
	return cmd
}
