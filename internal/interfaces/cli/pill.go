package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/PillScope/internal/application/identification"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/pkg/errors"
)

func newIdentifyCmd(cc *CLIContext) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "identify <imprint>",
		Short: "Identify a pill by its imprint and explain its purpose",
		Example: `  pillscope identify M71
  pillscope identify "L484" --query "can I take this with ibuprofen?"`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "question to answer from the label")
	cmd.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		p, err := cc.Pipeline(ctx)
		if err != nil {
			return err
		}
		in := identification.IdentifyInput{ImprintCode: args[0], UserQuery: query}
		res, err := withRetry(ctx, cc, func(ctx context.Context) (*identification.IdentifyResult, error) {
			return p.Identify(ctx, in)
		})
		if err != nil {
			return err
		}
		return PrintResult(cmd, cc.opts.OutputFormat, identifyView{res})
	})
	return cmd
}

func newExplainCmd(cc *CLIContext) *cobra.Command {
	var (
		imprint     string
		name        string
		query       string
		notThisPill bool
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Ask a follow-up question about an identified pill",
		Long: "explain answers a question from the label of an already identified pill.\n" +
			"With --not-this-pill the look-alike medicine is explained instead.",
		Args: cobra.NoArgs,
	}
	f := cmd.Flags()
	f.StringVar(&imprint, "imprint", "", "imprint number of the identified pill (required)")
	f.StringVar(&name, "name", "", "generic name of the identified pill (required)")
	f.StringVarP(&query, "query", "q", "", "question to answer")
	f.BoolVar(&notThisPill, "not-this-pill", false, "the identification was wrong; explain the look-alike")
	_ = cmd.MarkFlagRequired("imprint")
	_ = cmd.MarkFlagRequired("name")

	cmd.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		p, err := cc.Pipeline(ctx)
		if err != nil {
			return err
		}
		conv := pill.ConversationContext{
			ImprintNumber: imprint,
			GenericName:   name,
			UserQuery:     query,
			NotThisPill:   notThisPill,
		}
		res, err := withRetry(ctx, cc, func(ctx context.Context) (*identification.ConversationResult, error) {
			return p.Converse(ctx, conv)
		})
		if err != nil {
			return err
		}
		return PrintResult(cmd, cc.opts.OutputFormat, conversationView{res})
	})
	return cmd
}

func newCorrectCmd(cc *CLIContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <generic-name>",
		Short: "Explain the look-alike medicine for a misidentified pill",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		p, err := cc.Pipeline(ctx)
		if err != nil {
			return err
		}
		res, err := withRetry(ctx, cc, func(ctx context.Context) (*identification.CorrectionResult, error) {
			return p.Correct(ctx, args[0])
		})
		if err != nil {
			return err
		}
		return PrintResult(cmd, cc.opts.OutputFormat, correctionView{res})
	})
	return cmd
}

func newExtractCmd(cc *CLIContext) *cobra.Command {
	var identify bool
	cmd := &cobra.Command{
		Use:   "extract <image-file>",
		Short: "Read the imprint from a pill photo",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&identify, "identify", false, "identify the extracted imprint as well")
	cmd.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeImageInvalid, "cannot read image file").WithDetail(args[0])
		}
		p, err := cc.Pipeline(ctx)
		if err != nil {
			return err
		}
		in := identification.ExtractInput{
			Filename:    filepath.Base(args[0]),
			ContentType: http.DetectContentType(data),
			Data:        data,
		}
		res, err := withRetry(ctx, cc, func(ctx context.Context) (*identification.ExtractResult, error) {
			return p.Extract(ctx, in)
		})
		if err != nil {
			return err
		}
		if !identify {
			return PrintResult(cmd, cc.opts.OutputFormat, extractView{res})
		}

		code := strings.TrimSpace(res.ImprintCode)
		id, err := withRetry(ctx, cc, func(ctx context.Context) (*identification.IdentifyResult, error) {
			return p.Identify(ctx, identification.IdentifyInput{ImprintCode: code})
		})
		if err != nil {
			return err
		}
		return PrintResult(cmd, cc.opts.OutputFormat, identifyView{id})
	})
	return cmd
}

//Personal.AI order the ending
