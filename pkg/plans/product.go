package plans

import (
	"fmt"
	"strings"

	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/pipeline"
	"github.com/zen-systems/promptchain/pkg/prompt"
)

// ProductParams parameterize the product planning pipeline.
type ProductParams struct {
	Product string
	Config  adapter.GenerateConfig
}

func (p ProductParams) withDefaults() ProductParams {
	if p.Product == "" {
		p.Product = "an AI-powered interview platform"
	}
	if p.Config.MaxTokens == 0 {
		p.Config = adapter.GenerateConfig{
			Temperature: pipeline.FallbackTemperature,
			MaxTokens:   pipeline.FallbackMaxTokens,
		}
	}
	return p
}

// Params returns the effective parameters as printable pairs for run
// metadata.
func (p ProductParams) Params() map[string]string {
	p = p.withDefaults()
	return map[string]string{"product": p.Product}
}

// Product builds the product planning pipeline: market research, gap
// analysis, product blueprint, technical assessment, and executive
// review. The blueprint reads research and analysis; the review reads
// the blueprint and the technical assessment.
func Product(params ProductParams) (*pipeline.Pipeline, error) {
	p := params.withDefaults()

	stages := []pipeline.Stage{
		productStage(p, "research", nil,
			fmt.Sprintf("You are an expert market research analyst specializing in %s and "+
				"adjacent technology. Identify 3-4 major competitors, summarize their key "+
				"features and positioning, note current trends, and call out unmet market "+
				"needs. Respond as a structured analysis with clear sections.", p.Product),
			fmt.Sprintf("Conduct a comprehensive market analysis for %s. Cover current market "+
				"leaders and their key features, market trends and innovations, and unmet "+
				"needs and gaps.", p.Product)),

		productStage(p, "analysis", []string{"research"},
			"You are a strategic product analyst with expertise in SaaS product "+
				"development. From the research findings, identify 3 key market gaps or "+
				"opportunities. For each, explain what the gap is, why it matters, how it "+
				"can be addressed, and its potential impact. Favor opportunities that are "+
				"underserved, valuable to customers, and technically feasible.",
			fmt.Sprintf("Based on the following market research, identify 3 key opportunities "+
				"for %s.", p.Product)),

		productStage(p, "blueprint", []string{"research", "analysis"},
			"You are an experienced product designer and UX strategist. Create a product "+
				"blueprint: 5-7 core MVP features with descriptions tied to the identified "+
				"opportunities, the main user journey with key touchpoints, differentiation "+
				"against competitors, and target user personas.",
			fmt.Sprintf("Using the market research and opportunity analysis below, create a "+
				"comprehensive product blueprint for %s.", p.Product)),

		productStage(p, "technical", []string{"blueprint"},
			"You are a senior engineer and technical architect specializing in machine "+
				"learning systems and scalable software. Assess which proposed features are "+
				"technically feasible, estimate complexity and timelines, recommend a tech "+
				"stack and architecture patterns, and analyze data, infrastructure, privacy, "+
				"and security requirements.",
			fmt.Sprintf("Conduct a technical feasibility assessment of the following product "+
				"blueprint for %s.", p.Product)),

		productStage(p, "review", []string{"blueprint", "technical"},
			"You are an experienced product executive and business strategist. Review "+
				"the blueprint and technical assessment: judge feasibility of the feature "+
				"set, market viability and risks, pricing and revenue options, a phased "+
				"implementation roadmap, and the top 5 priorities for the next phase.",
			fmt.Sprintf("Review the product blueprint and technical assessment below for %s, "+
				"then provide strategic recommendations and next steps.", p.Product)),
	}

	pl, err := pipeline.New("product", stages...)
	if err != nil {
		return nil, err
	}
	pl.Description = fmt.Sprintf("Product planning workflow for %s", p.Product)
	return pl, nil
}

func productStage(p ProductParams, name string, needs []string, system, task string) pipeline.Stage {
	return pipeline.Stage{
		Name:   name,
		Needs:  needs,
		Config: p.Config,
		Render: func(prior pipeline.Outputs) (prompt.Prompt, error) {
			var sb strings.Builder
			sb.WriteString(task)
			for _, need := range needs {
				out, err := prior.Need(name, need)
				if err != nil {
					return nil, err
				}
				fmt.Fprintf(&sb, "\n\n%s:\n%s", strings.ToUpper(need), out)
			}
			return prompt.Prompt{prompt.System(system), prompt.User(sb.String())}, nil
		},
	}
}
