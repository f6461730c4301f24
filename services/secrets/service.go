package secrets

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/tracing"
)

// SecretsManagerClient is the part of the AWS Secrets Manager API the provider needs.
type SecretsManagerClient interface {
	GetSecretValueWithContext(ctx aws.Context, input *secretsmanager.GetSecretValueInput, opts ...request.Option) (*secretsmanager.GetSecretValueOutput, error)
}

type awsSecretProvider struct {
	client SecretsManagerClient
}

func NewAWSSecretProvider(region string) (interfaces.SecretProvider, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}
	return &awsSecretProvider{client: secretsmanager.New(sess)}, nil
}

func NewSecretProviderWithClient(client SecretsManagerClient) interfaces.SecretProvider {
	return &awsSecretProvider{client: client}
}

func (p *awsSecretProvider) GetSecret(ctx context.Context, name string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SecretProvider.GetSecret")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("request.name", name)

	out, err := p.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		err = errors.Wrapf(err, "get secret %s", name)
		tracing.TraceErr(span, err)
		return "", err
	}
	if out.SecretString != nil {
		return strings.TrimSpace(*out.SecretString), nil
	}
	return strings.TrimSpace(string(out.SecretBinary)), nil
}

// ResolveAnalyticsToken returns the configured token, or fetches it once from provider.
// Any failure is logged and yields "", which leaves the relay in log only mode.
func ResolveAnalyticsToken(ctx context.Context, configured, secretName string, provider interfaces.SecretProvider, log logger.Logger) string {
	if configured != "" {
		return configured
	}
	if provider == nil || secretName == "" {
		log.Warn("No analytics token configured, events will only be logged")
		return ""
	}
	token, err := provider.GetSecret(ctx, secretName)
	if err != nil {
		log.Warnf("Unable to load analytics token, events will only be logged: %v", err)
		return ""
	}
	if token == "" {
		log.Warnf("Secret %s is empty, events will only be logged", secretName)
	}
	return token
}
