package nlu

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// ServiceNameResolver maps a free-form procedure phrase from the dialogue
// onto one of the project's configured service names.
type ServiceNameResolver interface {
	Resolve(ctx context.Context, phrase string, services []string) (string, error)
}

// bedrockConverseAPI is the subset of the Bedrock runtime client the
// resolver uses.
type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockResolver asks a Bedrock model to pick the closest service name.
type BedrockResolver struct {
	api     bedrockConverseAPI
	modelID string
}

func NewBedrockResolver(api bedrockConverseAPI, modelID string) *BedrockResolver {
	if api == nil {
		panic("nlu: bedrock client cannot be nil")
	}
	if modelID == "" {
		panic("nlu: model ID cannot be empty")
	}
	return &BedrockResolver{api: api, modelID: modelID}
}

const resolverSystemPrompt = "You match a client's procedure request to one item from a fixed list of salon services. " +
	"Reply with exactly one service name from the list, nothing else. " +
	"If nothing matches, reply with the single word NONE."

func (r *BedrockResolver) Resolve(ctx context.Context, phrase string, services []string) (string, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || len(services) == 0 {
		return "", nil
	}

	// Cheap exact pass before spending a model call.
	if name, ok := matchExact(phrase, services); ok {
		return name, nil
	}

	prompt := fmt.Sprintf("Services: %s\nRequest: %s", strings.Join(services, "; "), phrase)
	out, err := r.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(r.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: resolverSystemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(32),
			Temperature: aws.Float32(0),
		},
	})
	if err != nil {
		return "", fmt.Errorf("nlu: converse: %w", err)
	}

	text, err := extractOutputText(out)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(text)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return "", nil
	}
	if name, ok := matchExact(answer, services); ok {
		return name, nil
	}
	// Model answered outside the list; treat as no match rather than
	// inventing a service.
	return "", nil
}

func extractOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("nlu: unexpected converse output type %T", out.Output)
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String(), nil
}

func matchExact(phrase string, services []string) (string, bool) {
	for _, s := range services {
		if strings.EqualFold(strings.TrimSpace(phrase), s) {
			return s, true
		}
	}
	return "", false
}

// StaticResolver resolves by case-insensitive substring match. It is the
// default when no Bedrock model is configured.
type StaticResolver struct{}

func (StaticResolver) Resolve(_ context.Context, phrase string, services []string) (string, error) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return "", nil
	}
	for _, s := range services {
		if strings.EqualFold(phrase, s) {
			return s, nil
		}
	}
	for _, s := range services {
		ls := strings.ToLower(s)
		if strings.Contains(phrase, ls) || strings.Contains(ls, phrase) {
			return s, nil
		}
	}
	return "", nil
}
