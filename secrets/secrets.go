// Package secrets resolves API credentials at startup.
//
// Deployments keep the client id and secret in SSM parameter store;
// local runs and tests supply them inline via Static.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Credentials are the upstream app credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Source resolves credentials.
type Source interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Static returns fixed credentials, for inline config and tests.
type Static struct {
	ClientID     string
	ClientSecret string
}

func (s Static) Credentials(_ context.Context) (Credentials, error) {
	if s.ClientID == "" || s.ClientSecret == "" {
		return Credentials{}, errors.New("static credentials incomplete")
	}
	return Credentials{ClientID: s.ClientID, ClientSecret: s.ClientSecret}, nil
}

// ssmAPI is the subset of the SSM client used, extracted for tests.
type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSM resolves credentials from two SecureString parameters.
type SSM struct {
	client          ssmAPI
	clientIDParam   string
	clientSecretKey string
}

// NewSSM creates an SSM-backed source.
// Uses the AWS SDK default credential chain.
func NewSSM(ctx context.Context, region, clientIDParam, clientSecretParam string) (*SSM, error) {
	if clientIDParam == "" || clientSecretParam == "" {
		return nil, errors.New("both SSM parameter names are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SSM{
		client:          ssm.NewFromConfig(awsConfig),
		clientIDParam:   clientIDParam,
		clientSecretKey: clientSecretParam,
	}, nil
}

func (s *SSM) Credentials(ctx context.Context) (Credentials, error) {
	id, err := s.parameter(ctx, s.clientIDParam)
	if err != nil {
		return Credentials{}, err
	}
	secret, err := s.parameter(ctx, s.clientSecretKey)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{ClientID: id, ClientSecret: secret}, nil
}

func (s *SSM) parameter(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}
	return *out.Parameter.Value, nil
}
