// Package rekognition detects imprint text in pill photos with AWS
// Rekognition.
package rekognition

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

// Config configures the detector. Empty keys fall back to the default AWS
// credential chain.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// DetectTextAPI is the slice of the Rekognition client the detector calls.
type DetectTextAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Detector implements pill.TextDetector.
type Detector struct {
	api     DetectTextAPI
	timeout time.Duration
	logger  logging.Logger
}

// NewDetector loads AWS configuration and builds a Rekognition client.
func NewDetector(ctx context.Context, cfg Config, log logging.Logger) (*Detector, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeOCRFailed, "failed to load aws configuration")
	}
	return NewDetectorWithAPI(rekognition.NewFromConfig(awsCfg), cfg.Timeout, log), nil
}

func NewDetectorWithAPI(api DetectTextAPI, timeout time.Duration, log logging.Logger) *Detector {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Detector{api: api, timeout: timeout, logger: log}
}

// DetectLines returns LINE detections in service order. WORD detections are
// discarded.
func (d *Detector) DetectLines(ctx context.Context, image []byte) ([]pill.TextDetection, error) {
	if len(image) == 0 {
		return nil, errors.New(errors.ErrCodeImageInvalid, "image is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	out, err := d.api.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, classify(err)
	}

	lines := make([]pill.TextDetection, 0, len(out.TextDetections))
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine {
			continue
		}
		det := pill.TextDetection{
			Text:       aws.ToString(td.DetectedText),
			Confidence: float64(aws.ToFloat32(td.Confidence)),
		}
		if td.Geometry != nil && td.Geometry.BoundingBox != nil {
			bb := td.Geometry.BoundingBox
			det.BoundingBox = pill.BoundingBox{
				Left:   float64(aws.ToFloat32(bb.Left)),
				Top:    float64(aws.ToFloat32(bb.Top)),
				Width:  float64(aws.ToFloat32(bb.Width)),
				Height: float64(aws.ToFloat32(bb.Height)),
			}
		}
		lines = append(lines, det)
	}

	d.logger.Debug("Text detection completed",
		logging.Int("detections", len(out.TextDetections)),
		logging.Int("lines", len(lines)),
		logging.Duration("latency", time.Since(start)))
	return lines, nil
}

func classify(err error) error {
	var (
		badFormat *types.InvalidImageFormatException
		tooLarge  *types.ImageTooLargeException
		throttled *types.ThrottlingException
		capacity  *types.ProvisionedThroughputExceededException
		internal  *types.InternalServerError
	)
	switch {
	case stderrors.As(err, &badFormat), stderrors.As(err, &tooLarge):
		return errors.Wrap(err, errors.ErrCodeImageInvalid, "image rejected by text detection")
	case stderrors.As(err, &throttled), stderrors.As(err, &capacity), stderrors.As(err, &internal):
		return errors.Wrap(err, errors.ErrCodeOCRFailed, "text detection unavailable").MarkRetryable()
	default:
		return errors.Wrap(err, errors.ErrCodeOCRFailed, "text detection failed")
	}
}

//Personal.AI order the ending
