// Package validation checks optional infrastructure at startup. Services the
// deployment declares as required must answer before the server takes
// traffic.
package validation

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/audio"
	"github.com/voxchat/backend/internal/cache"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/storage"
)

// serviceChecks maps each optional service to its startup probe
var serviceChecks = map[string]func(ctx context.Context) error{
	"s3":     validateS3,
	"redis":  validateRedis,
	"giphy":  validateGiphy,
	"ffmpeg": validateFFmpeg,
}

// ServiceValidator probes the services the deployment marked required
type ServiceValidator struct {
	requiredServices []string
}

// NewServiceValidator reads the VOXCHAT_BACKEND_REQUIRE_* environment
// variables to decide which services must answer.
func NewServiceValidator() *ServiceValidator {
	return &ServiceValidator{
		requiredServices: parseRequiredServices(),
	}
}

// ValidateServices probes every required service, failing on the first one
// that does not answer within 10 seconds.
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	for _, name := range sv.requiredServices {
		check, ok := serviceChecks[name]
		if !ok {
			logger.Log.Warn("Unknown service type in validation", zap.String("service", name))
			continue
		}

		if err := sv.probe(ctx, name, check); err != nil {
			logger.Log.Error("❌ Required service validation failed",
				zap.String("service", name),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q validation failed: %w", name, err)
		}

		logger.Log.Info("✅ Service validated", zap.String("service", name))
	}

	logger.Log.Info("✅ All required services validated")
	return nil
}

func (sv *ServiceValidator) probe(ctx context.Context, name string, check func(ctx context.Context) error) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return check(probeCtx)
}

// validateS3 checks that the attachment bucket is accessible
func validateS3(ctx context.Context) error {
	region := os.Getenv("AWS_REGION")
	bucket := os.Getenv("AWS_BUCKET")

	if region == "" || bucket == "" {
		return fmt.Errorf("AWS_REGION and AWS_BUCKET are required for S3 validation")
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" || os.Getenv("AWS_SECRET_ACCESS_KEY") == "" {
		return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required for S3 validation")
	}

	cdnURL := os.Getenv("CDN_BASE_URL")
	if cdnURL == "" {
		cdnURL = "https://cdn.voxchat.io"
	}

	s3Uploader, err := storage.NewS3Uploader(region, bucket, cdnURL)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	if err := s3Uploader.CheckBucketAccess(ctx); err != nil {
		return fmt.Errorf("S3 bucket access check failed: %w", err)
	}
	return nil
}

// validateRedis checks that Redis answers a ping
func validateRedis(ctx context.Context) error {
	redisClient, err := cache.NewRedisClient(
		os.Getenv("REDIS_HOST"),
		os.Getenv("REDIS_PORT"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	return redisClient.Ping(ctx)
}

// validateGiphy checks that the GIPHY API key works against the trending
// endpoint, the cheapest call that exercises the key.
func validateGiphy(ctx context.Context) error {
	apiKey := os.Getenv("GIPHY_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GIPHY_API_KEY is required for GIPHY validation")
	}

	url := fmt.Sprintf("https://api.giphy.com/v1/gifs/trending?api_key=%s&limit=1", apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create GIPHY health check request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to GIPHY: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GIPHY returned status %d", resp.StatusCode)
	}
	return nil
}

// validateFFmpeg checks that ffmpeg is installed for voice note encoding
func validateFFmpeg(ctx context.Context) error {
	return audio.CheckFFmpegInstallation()
}

// parseRequiredServices collects the services whose
// VOXCHAT_BACKEND_REQUIRE_<NAME> variable is set to a truthy value.
func parseRequiredServices() []string {
	var required []string
	for _, service := range []string{"s3", "redis", "giphy", "ffmpeg"} {
		value := os.Getenv("VOXCHAT_BACKEND_REQUIRE_" + strings.ToUpper(service))
		if isTruthy(value) {
			required = append(required, service)
		}
	}
	return required
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
