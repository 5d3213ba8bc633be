package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	smithyauth "github.com/aws/smithy-go/auth"
)

const contentTypeJSON = "application/json"

// BedrockAPI is the subset of the bedrockruntime client used by BedrockTransport.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockOptions configures the Bedrock runtime client.
type BedrockOptions struct {
	Region string

	// ProxyURL replaces the Bedrock endpoint. Requests sent to a proxy are not signed.
	ProxyURL string

	// Profile selects a shared config profile for signed requests.
	Profile string
}

// BedrockTransport calls the Bedrock runtime InvokeModel API.
type BedrockTransport struct {
	client BedrockAPI
}

// NewBedrockTransport builds a Bedrock runtime client from the default AWS
// configuration chain. The SDK's own retries are disabled.
func NewBedrockTransport(ctx context.Context, opts BedrockOptions) (*BedrockTransport, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
		config.WithRetryMaxAttempts(1),
	}
	switch {
	case opts.ProxyURL != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case opts.Profile != "":
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if opts.ProxyURL != "" {
			o.BaseEndpoint = aws.String(opts.ProxyURL)
			o.AuthSchemeResolver = anonymousAuthResolver{}
		}
	})
	return NewBedrockTransportFromClient(client), nil
}

// anonymousAuthResolver selects no auth scheme, so requests to a proxy carry
// neither a SigV4 signature nor a bearer token.
type anonymousAuthResolver struct{}

func (anonymousAuthResolver) ResolveAuthSchemes(context.Context, *bedrockruntime.AuthResolverParameters) ([]*smithyauth.Option, error) {
	return []*smithyauth.Option{{SchemeID: smithyauth.SchemeIDAnonymous}}, nil
}

// NewBedrockTransportFromClient wraps an existing client (useful for testing).
func NewBedrockTransportFromClient(client BedrockAPI) *BedrockTransport {
	return &BedrockTransport{client: client}
}

// InvokeModel sends one request. A panic inside the SDK is returned as an
// error so that a single call cannot end the session.
func (t *BedrockTransport) InvokeModel(ctx context.Context, req *InvokeRequest) (body []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			body, err = nil, fmt.Errorf("bedrock client panicked invoking model %s: %v", req.ModelID, r)
		}
	}()

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.ModelID),
		Body:        req.Body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	}
	if req.GuardrailID != "" {
		input.GuardrailIdentifier = aws.String(req.GuardrailID)
		input.GuardrailVersion = aws.String(req.GuardrailVersion)
	}

	output, err := t.client.InvokeModel(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke model %s: %w", req.ModelID, err)
	}
	return output.Body, nil
}
