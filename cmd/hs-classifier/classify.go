package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/domain"
)

// classifyInput is one product to classify, before validation.
type classifyInput struct {
	Description string
	Region      domain.Region
	Image       *domain.Image
}

// newClassifyCmd creates the classify subcommand.
func newClassifyCmd() *cobra.Command {
	var (
		region    string
		imagePath string
		retries   uint64
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "classify [description]",
		Short: "Classify a product description or photo",
		Long: `Classify suggests an HS code for a product. Give a description, a photo
(--image), or both. Progress is shown while live databases and the model are
consulted; --json prints the full report instead.`,
		Example: `  hs-classifier classify "Wireless Bluetooth headphones" --region SG
  hs-classifier classify --image ./bolt.jpg --region UAE --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			input, err := buildInput(strings.Join(args, " "), region, imagePath)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, logger, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			ui := NewUI(outputJSON, noColor)
			spin := ui.NewSpinner("Starting...")
			req, err := domain.NewClassificationRequest(input.Description, input.Region, input.Image, spin.UpdateMessage)
			if err != nil {
				return err
			}

			spin.Start()
			rep, err := classifier.IdentifyWithRetry(ctx, a.service, req, retries, classifier.DefaultRetryBase)
			spin.Stop()
			if err != nil {
				ui.Error("Classification failed: %s", describeError(err))
				return err
			}

			a.saveHistory(ctx, input, rep)

			if outputJSON {
				return ui.JSON(reportJSON(rep))
			}
			ui.Report(rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", string(domain.RegionGlobal), "target region code, alias or name (see 'regions')")
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "path to a product photo")
	cmd.Flags().Uint64Var(&retries, "retries", 0, "retry failed classifications with exponential backoff")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for the classification (0 = none)")

	return cmd
}

// buildInput resolves the region and loads the optional image file.
func buildInput(description, region, imagePath string) (classifyInput, error) {
	r, err := domain.ParseRegion(region)
	if err != nil {
		return classifyInput{}, err
	}
	input := classifyInput{Description: strings.TrimSpace(description), Region: r}
	if imagePath != "" {
		img, err := loadImage(imagePath)
		if err != nil {
			return classifyInput{}, err
		}
		input.Image = img
	}
	return input, nil
}

// loadImage reads a photo from disk and encodes it as base64.
func loadImage(path string) (*domain.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.ValidationError(fmt.Sprintf("image %s is empty", path), nil)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, domain.ValidationError(fmt.Sprintf("%s is not an image (%s)", path, mimeType), nil)
	}
	return &domain.Image{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// reportView is the --json form of a classification.
type reportView struct {
	ID        string                       `json:"id"`
	Region    domain.Region                `json:"region"`
	Provider  string                       `json:"provider"`
	Result    *domain.ClassificationResult `json:"result"`
	Evidence  []string                     `json:"evidence"`
	Citations []string                     `json:"citations"`
	ElapsedMs int64                        `json:"elapsedMs"`
}

func reportJSON(rep *classifier.Report) reportView {
	v := reportView{
		ID:        rep.ID.String(),
		Region:    rep.Region,
		Provider:  rep.Provider,
		Result:    rep.Result,
		Evidence:  []string{},
		Citations: []string{},
		ElapsedMs: rep.Elapsed.Milliseconds(),
	}
	for _, o := range rep.Evidence.Outcomes {
		v.Evidence = append(v.Evidence, string(o.Connector)+"="+string(o.Outcome))
	}
	for _, c := range rep.Citations {
		v.Citations = append(v.Citations, c.URI)
	}
	return v
}
