package router

import (
	"regexp"
	"strings"
	"time"

	"github.com/BaSui01/agentmesh/types"
)

// Classifier 任务分类器：快速通道检测的稳定接口，关键字集可配置。
type Classifier interface {
	// Name 返回分类器标识
	Name() string
	// Match 判断任务是否命中该分类
	Match(task types.Task) bool
}

// defaultTrivialPhrases 默认琐碎任务短语集（规范化后精确匹配）。
var defaultTrivialPhrases = []string{
	"hello", "hi", "hey", "yo",
	"thanks", "thank you", "thx",
	"ok", "okay", "yes", "no", "sure",
	"ping", "test",
	"good morning", "good afternoon", "good evening", "good night",
	"how are you",
}

// TrivialClassifier 识别问候语与单词确认类任务。
// 命中条件：规范化后的任务文本精确落在短语集内，且任务未声明能力要求。
type TrivialClassifier struct {
	phrases map[string]struct{}
}

// NewTrivialClassifier 创建琐碎任务分类器，phrases 为空时使用默认短语集。
func NewTrivialClassifier(phrases []string) *TrivialClassifier {
	if len(phrases) == 0 {
		phrases = defaultTrivialPhrases
	}
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[normalizePhrase(p)] = struct{}{}
	}
	return &TrivialClassifier{phrases: set}
}

func (c *TrivialClassifier) Name() string { return "trivial" }

func (c *TrivialClassifier) Match(task types.Task) bool {
	if len(task.RequiredCapabilities) > 0 {
		return false
	}
	_, ok := c.phrases[normalizePhrase(task.Text)]
	return ok
}

// normalizePhrase 小写、去首尾空白、去尾部标点。
func normalizePhrase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, "!.?,;: ")
}

// defaultTimeSensitiveKeywords 默认时效性关键字。
var defaultTimeSensitiveKeywords = []string{
	"latest", "current", "currently", "today", "right now", "this week",
	"this year", "recent", "recently", "breaking", "news", "who won",
	"live", "up to date", "real-time", "realtime",
}

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// TimeSensitiveClassifier 识别需要实时信息的任务：
// 命中任一关键字，或文本中出现不早于当前年份的年份。
type TimeSensitiveClassifier struct {
	keywords []string
	nowFn    func() time.Time
}

// NewTimeSensitiveClassifier 创建时效性分类器，keywords 为空时使用默认集。
func NewTimeSensitiveClassifier(keywords []string) *TimeSensitiveClassifier {
	if len(keywords) == 0 {
		keywords = defaultTimeSensitiveKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &TimeSensitiveClassifier{keywords: lowered, nowFn: time.Now}
}

func (c *TimeSensitiveClassifier) Name() string { return "time_sensitive" }

func (c *TimeSensitiveClassifier) Match(task types.Task) bool {
	text := strings.ToLower(task.Text)
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}

	currentYear := c.nowFn().Year()
	for _, m := range yearPattern.FindAllString(task.Text, -1) {
		year := 0
		for _, r := range m {
			year = year*10 + int(r-'0')
		}
		if year >= currentYear {
			return true
		}
	}
	return false
}
