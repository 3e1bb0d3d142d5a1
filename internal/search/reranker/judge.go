package reranker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Judge LLM 相关性打分，返回文档下标到 [0,1] 分数的映射
type Judge interface {
	Score(ctx context.Context, query string, documents []string) (map[int]float64, error)
}

// JudgeConfig LLM judge 配置
type JudgeConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// Validate 验证配置
func (c *JudgeConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

const judgeMaxGrade = 3.0

const judgeRubric = `You grade how well engineering activity records answer a search query.
Grade every record on this scale:
3 = directly answers the query
2 = clearly related and useful
1 = loosely related
0 = unrelated
Reply with JSON only: {"scores":[{"index":<record index>,"score":<0-3>}, ...]} covering every record.`

// OpenAIJudge 基于 OpenAI 兼容接口 JSON 模式的打分器
type OpenAIJudge struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *logger.Logger
}

// NewOpenAIJudge 创建 LLM judge
func NewOpenAIJudge(cfg *JudgeConfig, lgr *logger.Logger) (*OpenAIJudge, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lgr == nil {
		lgr = logger.L()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        16,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIJudge{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		logger:      lgr.Named("llm_judge"),
	}, nil
}

// Score 一次调用为全部文档打分
func (j *OpenAIJudge) Score(ctx context.Context, query string, documents []string) (map[int]float64, error) {
	if len(documents) == 0 {
		return map[int]float64{}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nRecords:\n", query)
	for i, doc := range documents {
		fmt.Fprintf(&sb, "[%d] %s\n", i, strings.ReplaceAll(doc, "\n", " "))
	}

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: j.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeRubric},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("judge returned no choices")
	}

	scores, err := parseJudgeScores(resp.Choices[0].Message.Content, len(documents))
	if err != nil {
		return nil, err
	}

	j.logger.Debug("judge scored documents",
		zap.Int("documents", len(documents)),
		zap.Int("scored", len(scores)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return scores, nil
}

// parseJudgeScores 读取 {"scores":[{"index":i,"score":s}]}，分数夹到 [0,3] 后除以 3
func parseJudgeScores(content string, n int) (map[int]float64, error) {
	content = strings.TrimSpace(content)
	if !gjson.Valid(content) {
		return nil, fmt.Errorf("judge output is not valid JSON")
	}

	scores := make(map[int]float64, n)
	gjson.Get(content, "scores").ForEach(func(_, item gjson.Result) bool {
		idx := item.Get("index")
		score := item.Get("score")
		if !idx.Exists() || !score.Exists() {
			return true
		}
		i := int(idx.Int())
		if i < 0 || i >= n {
			return true
		}
		s := score.Float()
		if s < 0 {
			s = 0
		} else if s > judgeMaxGrade {
			s = judgeMaxGrade
		}
		scores[i] = s / judgeMaxGrade
		return true
	})

	if len(scores) == 0 {
		return nil, fmt.Errorf("judge output contained no usable scores")
	}
	return scores, nil
}
