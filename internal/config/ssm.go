package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ParameterGetter is the slice of the SSM client used here, extracted so
// tests can stub the parameter fetch.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadGeminiKey resolves the Gemini API key, preferring the environment and
// falling back to SSM Parameter Store. The SSM path keeps the key out of task
// definitions and .env files in deployed environments.
func (c *AppConfig) LoadGeminiKey(ctx context.Context, client ParameterGetter) error {
	if c.GeminiAPIKey != "" {
		return nil
	}

	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(c.SSMAPIKeyParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("read API key from SSM parameter %s: %w", c.SSMAPIKeyParam, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return fmt.Errorf("SSM parameter %s is empty", c.SSMAPIKeyParam)
	}

	c.GeminiAPIKey = *result.Parameter.Value
	log.Debug().
		Str("param", c.SSMAPIKeyParam).
		Dur("elapsed", time.Since(start)).
		Msg("Gemini API key loaded from SSM")
	return nil
}
