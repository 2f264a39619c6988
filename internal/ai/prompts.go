package ai

import (
	"fmt"
	"strings"

	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

// Language 生成内容使用的语言
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguagePortuguese Language = "pt-BR"
)

// ParseLanguage 未识别的值回退到英文
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguagePortuguese)) {
		return LanguagePortuguese
	}
	return LanguageEnglish
}

// PostLength 帖子长度档位
type PostLength string

const (
	PostLengthShort  PostLength = "short"
	PostLengthMedium PostLength = "medium"
	PostLengthLong   PostLength = "long"
)

// ParsePostLength 未识别的值回退到 medium
func ParsePostLength(s string) PostLength {
	switch PostLength(strings.ToLower(strings.TrimSpace(s))) {
	case PostLengthShort:
		return PostLengthShort
	case PostLengthLong:
		return PostLengthLong
	default:
		return PostLengthMedium
	}
}

// MaxChars 档位对应的最大字符数
func (l PostLength) MaxChars() int {
	switch l {
	case PostLengthShort:
		return 280
	case PostLengthLong:
		return 1000
	default:
		return 560
	}
}

var difficultyLabels = map[Language][]string{
	LanguageEnglish:    {"Beginner", "Elementary", "Intermediate", "Advanced", "Expert"},
	LanguagePortuguese: {"Iniciante", "Elementar", "Intermediário", "Avançado", "Especialista"},
}

// DifficultyLabel 难度 1..5 的展示名，越界回退到 1
func DifficultyLabel(level int, lang Language) string {
	labels, ok := difficultyLabels[lang]
	if !ok {
		labels = difficultyLabels[LanguageEnglish]
	}
	if level < schema.MinDifficulty || level > schema.MaxDifficulty {
		level = schema.MinDifficulty
	}
	return labels[level-1]
}

// Prompt system + user 两段提示词
type Prompt struct {
	System string
	User   string
}

// Request 转换为补全请求
func (p Prompt) Request() CompletionRequest {
	return CompletionRequest{System: p.System, User: p.User}
}

// PromptContext 生成帖子所需的上下文
type PromptContext struct {
	Personality     persona.Personality
	Topic           string
	DifficultyLevel int
	PostLength      PostLength
	Language        Language
	PreviousContext string
	OriginalConcept string
}

func languageInstruction(lang Language) string {
	if lang == LanguagePortuguese {
		return "Responda em Português Brasileiro."
	}
	return "Respond in English."
}

func lengthInstruction(length PostLength, lang Language) string {
	if lang == LanguagePortuguese {
		return fmt.Sprintf("Mantenha a resposta com no máximo %d caracteres.", length.MaxChars())
	}
	return fmt.Sprintf("Keep your response under %d characters.", length.MaxChars())
}

// BuildPostPrompt 按帖子类型构建提示词
func BuildPostPrompt(postType schema.PostType, c PromptContext) Prompt {
	pt := c.Language == LanguagePortuguese
	diff := DifficultyLabel(c.DifficultyLevel, c.Language)

	system := fmt.Sprintf("%s\n\n%s\n%s\nDifficulty level: %s (%d/5).\nDo NOT include any meta-commentary about yourself or the format. Just teach naturally as this personality would.",
		c.Personality.SystemPrompt,
		languageInstruction(c.Language),
		lengthInstruction(c.PostLength, c.Language),
		diff, c.DifficultyLevel,
	)

	var user string
	switch postType {
	case schema.PostTypeStandalone:
		if pt {
			user = fmt.Sprintf("Ensine um conceito interessante sobre \"%s\" no nível %s. Seja direto e educativo.", c.Topic, diff)
		} else {
			user = fmt.Sprintf("Teach an interesting concept about \"%s\" at %s level. Be direct and educational.", c.Topic, diff)
		}
	case schema.PostTypeSequential:
		if pt {
			prev := orDefault(c.PreviousContext, "Este é o início da série.")
			user = fmt.Sprintf("Continue ensinando sobre \"%s\" no nível %s. Contexto anterior:\n\n%s\n\nExpanda o tópico com o próximo conceito lógico.", c.Topic, diff, prev)
		} else {
			prev := orDefault(c.PreviousContext, "This is the start of the series.")
			user = fmt.Sprintf("Continue teaching about \"%s\" at %s level. Previous context:\n\n%s\n\nExpand with the next logical concept.", c.Topic, diff, prev)
		}
	case schema.PostTypeQuiz:
		if pt {
			user = fmt.Sprintf("Crie um desafio ou pergunta rápida sobre \"%s\" no nível %s. Inclua a pergunta e depois a resposta. Formato: primeiro a pergunta, depois \"Resposta:\" com a explicação.", c.Topic, diff)
		} else {
			user = fmt.Sprintf("Create a quick challenge or question about \"%s\" at %s level. Include the question then the answer. Format: question first, then \"Answer:\" with the explanation.", c.Topic, diff)
		}
	case schema.PostTypeDeepDive:
		var prev string
		if pt {
			if c.PreviousContext != "" {
				prev = "\n\nPosts anteriores nesta thread:\n" + c.PreviousContext
			}
			user = fmt.Sprintf("Faça uma exploração aprofundada sobre \"%s\" no nível %s.%s\n\nAprofunde em um aspecto específico com detalhes e nuances.", c.Topic, diff, prev)
		} else {
			if c.PreviousContext != "" {
				prev = "\n\nPrevious posts in this thread:\n" + c.PreviousContext
			}
			user = fmt.Sprintf("Do a deep exploration of \"%s\" at %s level.%s\n\nDive deep into a specific aspect with detail and nuance.", c.Topic, diff, prev)
		}
	case schema.PostTypeSpacedReview:
		concept := orDefault(c.OriginalConcept, c.Topic)
		if pt {
			user = fmt.Sprintf("Reforce este conceito com uma explicação diferente e novos exemplos:\n\n\"%s\"\n\nUse uma abordagem diferente da original para ajudar na memorização.", concept)
		} else {
			user = fmt.Sprintf("Reinforce this concept with a different explanation and new examples:\n\n\"%s\"\n\nUse a different approach from the original to aid retention.", concept)
		}
	default:
		if pt {
			user = fmt.Sprintf("Ensine algo sobre \"%s\" no nível %s.", c.Topic, diff)
		} else {
			user = fmt.Sprintf("Teach something about \"%s\" at %s level.", c.Topic, diff)
		}
	}

	return Prompt{System: system, User: user}
}

// ReplyContext 回复用户提问的上下文
type ReplyContext struct {
	Personality  persona.Personality
	OriginalPost string
	Question     string
	Language     Language
	PostLength   PostLength
}

// BuildReplyPrompt 构建针对用户提问的回复提示词
func BuildReplyPrompt(c ReplyContext) Prompt {
	system := fmt.Sprintf("%s\n\n%s\n%s\nYou are replying in a discussion thread. Stay in character.",
		c.Personality.SystemPrompt, languageInstruction(c.Language), lengthInstruction(c.PostLength, c.Language))

	var user string
	if c.Language == LanguagePortuguese {
		user = fmt.Sprintf("Post original:\n\"%s\"\n\nPergunta/comentário:\n\"%s\"\n\nResponda como %s responderia.", c.OriginalPost, c.Question, c.Personality.Name)
	} else {
		user = fmt.Sprintf("Original post:\n\"%s\"\n\nQuestion/comment:\n\"%s\"\n\nRespond as %s would.", c.OriginalPost, c.Question, c.Personality.Name)
	}
	return Prompt{System: system, User: user}
}

// DiscussionContext 讨论串生成上下文
type DiscussionContext struct {
	Personality  persona.Personality
	OriginalPost string
	Topic        string
	Language     Language
	PostLength   PostLength
}

// BuildDiscussionPrompt 构建讨论串提示词，模型以 "---" 分隔每条回复
func BuildDiscussionPrompt(c DiscussionContext) Prompt {
	system := fmt.Sprintf("%s\n\n%s\n%s",
		c.Personality.SystemPrompt, languageInstruction(c.Language), lengthInstruction(c.PostLength, c.Language))

	var user string
	if c.Language == LanguagePortuguese {
		user = fmt.Sprintf("Gere uma thread de discussão para este post sobre \"%s\":\n\n\"%s\"\n\nGere 2-3 respostas naturais: uma pergunta de um aluno curioso, sua resposta detalhada, e opcionalmente um esclarecimento de equívoco comum. Formate cada resposta separada por \"---\".", c.Topic, c.OriginalPost)
	} else {
		user = fmt.Sprintf("Generate a discussion thread for this post about \"%s\":\n\n\"%s\"\n\nGenerate 2-3 natural replies: a question from a curious student, your detailed answer, and optionally a common misconception clarification. Format each reply separated by \"---\".", c.Topic, c.OriginalPost)
	}
	return Prompt{System: system, User: user}
}

// TopicCount 单个主题的帖子数
type TopicCount struct {
	Topic string
	Count int
}

// RecapContext 周报统计
type RecapContext struct {
	Language         Language
	TopicsStudied    []string
	TotalPosts       int
	TotalLikes       int
	ConceptsReviewed int
	TopicBreakdown   []TopicCount
}

// BuildRecapPrompt 构建周报提示词
func BuildRecapPrompt(c RecapContext) Prompt {
	lines := make([]string, 0, len(c.TopicBreakdown))
	for _, t := range c.TopicBreakdown {
		lines = append(lines, fmt.Sprintf("- %s: %d posts", t.Topic, t.Count))
	}
	breakdown := strings.Join(lines, "\n")
	topics := strings.Join(c.TopicsStudied, ", ")

	if c.Language == LanguagePortuguese {
		return Prompt{
			System: "Você é um assistente educacional que cria resumos semanais motivacionais e informativos. Responda em Português Brasileiro. Seja encorajador e específico.",
			User: fmt.Sprintf("Crie um resumo semanal de aprendizado baseado nestas estatísticas:\n\n- Tópicos estudados: %s\n- Total de posts lidos: %d\n- Curtidas: %d\n- Conceitos revisados: %d\n\nDetalhamento:\n%s\n\nFaça um resumo motivacional e destaque o progresso.",
				topics, c.TotalPosts, c.TotalLikes, c.ConceptsReviewed, breakdown),
		}
	}
	return Prompt{
		System: "You are an educational assistant creating motivational and informative weekly recaps. Respond in English. Be encouraging and specific.",
		User: fmt.Sprintf("Create a weekly learning recap based on these stats:\n\n- Topics studied: %s\n- Total posts read: %d\n- Likes: %d\n- Concepts reviewed: %d\n\nBreakdown:\n%s\n\nMake it motivational and highlight progress.",
			topics, c.TotalPosts, c.TotalLikes, c.ConceptsReviewed, breakdown),
	}
}

// BuildConceptExtractionPrompt 构建核心概念提取提示词
func BuildConceptExtractionPrompt(postContent string, lang Language) Prompt {
	if lang == LanguagePortuguese {
		return Prompt{
			System: "Você é um assistente que extrai o conceito principal de posts educacionais. Responda com apenas uma frase curta descrevendo o conceito central.",
			User:   fmt.Sprintf("Extraia o conceito principal deste post educacional:\n\n\"%s\"", postContent),
		}
	}
	return Prompt{
		System: "You are an assistant that extracts the core concept from educational posts. Reply with just one short sentence describing the central concept.",
		User:   fmt.Sprintf("Extract the core concept from this educational post:\n\n\"%s\"", postContent),
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
