package core

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

const (
	defaultTitleMaxLength       = 30
	defaultDescriptionMaxLength = 200
	defaultDeadlineDays         = 30
	fallbackTitle               = "新目标"
	defaultIcon                 = "🎯"
	ellipsis                    = "..."
)

// GoalExtractor turns free-form assistant text into a goal draft.
type GoalExtractor interface {
	// ExtractGoalIntent returns nil when text carries no goal-creation
	// intent. Otherwise every field of the draft is populated.
	ExtractGoalIntent(text string) *models.GoalDraft
}

// textMatcher is one step of a field cascade. handle turns the submatches of
// pattern into a field value; returning false passes to the next step.
type textMatcher struct {
	name    string
	pattern *regexp.Regexp
	handle  func(e *goalExtractor, m []string) (string, bool)
}

func matchedAny(_ *goalExtractor, _ []string) (string, bool) { return "", true }

const (
	confirmationPattern     = `目标(?:已经?|已?成功)(?:添加|创建|保存|设定|设置)|目标(?:添加|创建|保存|设定|设置)成功|(?i:goal\s+(?:has\s+been\s+|was\s+)?(?:successfully\s+)?(?:added|created|saved))`
	assistantCreatedPattern = `已经?(?:为你|帮你|给你)?(?:设定|设置|创建|添加|保存|制定)了?(?:一个)?(?:新的?)?目标|(?i:\bi(?:'ve|\s+have)\s+(?:set|created|added|saved)\s+(?:up\s+)?(?:a\s+|the\s+|your\s+)?(?:new\s+)?goal)`

	// explicitRequestPattern captures a leading negation so that "haven't set
	// a goal" or 还没有设定目标 can be turned away by rejectNegated.
	explicitRequestPattern = `(还没有?|没有?|尚未|未)?(?:添加|创建|保存|设定|设置|新建|制定)(?:一个)?(?:新的?)?目标|(?i:(?:(\bnot|\bnever|\bcannot|n't|n’t)\s+(?:yet\s+)?)?\b(?:add|create|save|set)\s+(?:a\s+|the\s+|this\s+|my\s+|as\s+a\s+)?(?:new\s+)?goal\b)`
)

func rejectNegated(_ *goalExtractor, m []string) (string, bool) {
	return "", firstGroup(m) == ""
}

// intentMatchers decide whether text asks for a goal at all. Order matters:
// the first match wins and nothing else is evaluated on a miss.
var intentMatchers = []textMatcher{
	{
		name:    "confirmation",
		pattern: regexp.MustCompile(confirmationPattern),
		handle:  matchedAny,
	},
	{
		name:    "assistant_created",
		pattern: regexp.MustCompile(assistantCreatedPattern),
		handle:  matchedAny,
	},
	{
		name:    "explicit_request",
		pattern: regexp.MustCompile(explicitRequestPattern),
		handle:  rejectNegated,
	},
}

// titleMatchers extract the goal title. The fallback (first non-empty line)
// is applied by the extractor when all of them miss.
var titleMatchers = []textMatcher{
	{
		name:    "quoted",
		pattern: regexp.MustCompile(`["“「『《【]\s*([^"“”「」『』《》【】\n]+?)\s*["”」』》】]`),
		handle:  captureTitle,
	},
	{
		name:    "labelled",
		pattern: regexp.MustCompile(`(?:目标名称|目标标题|标题|名称|(?i:goal\s+title|title))\s*[:：]\s*([^\n，,。；;！!]+)`),
		handle:  captureTitle,
	},
	{
		name:    "colon_trailing",
		pattern: regexp.MustCompile(`(?:目标|(?i:goal)|` + confirmationPattern + `)\s*[:：]\s*([^\n，,。；;！!]+)`),
		handle:  captureTitle,
	},
	{
		name:    "domain_phrase",
		pattern: regexp.MustCompile(`(?:设定|设置|制定|创建|添加)(?:一个|了)?(?:新的?)?目标(?:为|是)\s*([^\n，,。；;！!]+)|(?i:\bset\s+(?:a\s+|your\s+)?(?:new\s+)?goal\s+(?:to|of)\s+)([^\n,.;!]+)`),
		handle:  captureTitle,
	},
}

var priorityMatchers = []textMatcher{
	{
		name:    "labelled",
		pattern: regexp.MustCompile(`(?:优先级|(?i:priority))\s*(?:[:：为是]\s*)?(高|中|低|(?i:high|medium|low)\b)`),
		handle:  capturePriority,
	},
	{
		name:    "qualified",
		pattern: regexp.MustCompile(`(高|中|低)优先级|(?i:\b(high|medium|low)[- ]priority\b)`),
		handle:  capturePriority,
	},
}

// deadlineLabel must precede a date for it to count as the deadline.
const deadlineLabel = `(?:截止日期|截止时间|截止于|截止|期限|到期日|(?i:deadline|due\s+date|due))\s*(?:[:：为是]|(?i:on\b))?\s*`

var deadlineMatchers = []textMatcher{
	{
		name:    "full_numeric",
		pattern: regexp.MustCompile(deadlineLabel + `(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})(?:\D|$)`),
		handle:  captureFullDate,
	},
	{
		name:    "full_cjk",
		pattern: regexp.MustCompile(deadlineLabel + `(\d{4})年(\d{1,2})月(\d{1,2})[日号]?`),
		handle:  captureFullDate,
	},
	{
		name:    "month_day_numeric",
		pattern: regexp.MustCompile(deadlineLabel + `(\d{1,2})[/\-](\d{1,2})(?:\D|$)`),
		handle:  capturePartialDate,
	},
	{
		name:    "month_day_cjk",
		pattern: regexp.MustCompile(deadlineLabel + `(\d{1,2})月(\d{1,2})[日号]`),
		handle:  capturePartialDate,
	},
}

var descriptionMatchers = []textMatcher{
	{
		name:    "labelled",
		pattern: regexp.MustCompile(`(?:目标描述|描述|说明|详情|(?i:description))\s*[:：]\s*([^\n]+)`),
		handle: func(_ *goalExtractor, m []string) (string, bool) {
			v := strings.TrimSpace(firstGroup(m))
			return v, v != ""
		},
	},
}

// iconCategory maps title keywords to a fixed icon. CJK keywords match as
// substrings; English ones must match whole words.
type iconCategory struct {
	name     string
	icon     string
	keywords []string
	words    *regexp.Regexp
}

var iconCategories = []iconCategory{
	{
		name:     "fitness",
		icon:     "💪",
		keywords: []string{"跑步", "健身", "运动", "锻炼", "瑜伽", "游泳", "骑行"},
		words:    regexp.MustCompile(`(?i)\b(?:run|runs|running|gym|workouts?|exercis(?:e|es|ing)|fitness|yoga|swim|swims|swimming)\b`),
	},
	{
		name:     "study",
		icon:     "📚",
		keywords: []string{"学习", "阅读", "读书", "考试", "课程", "英语", "背单词"},
		words:    regexp.MustCompile(`(?i)\b(?:learn(?:s|ing)?|stud(?:y|ies|ying)|read(?:s|ing)?|courses?|exams?)\b`),
	},
	{
		name:     "work",
		icon:     "💼",
		keywords: []string{"工作", "项目", "会议", "报告", "职业", "升职"},
		words:    regexp.MustCompile(`(?i)\b(?:work(?:s|ing)?|projects?|careers?|meetings?|reports?)\b`),
	},
	{
		name:     "diet",
		icon:     "🥗",
		keywords: []string{"饮食", "减肥", "减脂", "喝水", "吃", "蔬菜"},
		words:    regexp.MustCompile(`(?i)\b(?:diet|eat(?:s|ing)?|nutrition|weight|water)\b`),
	},
}

// MatcherNames returns the ordered matcher names of a cascade ("intent",
// "title", "priority", "deadline", "description" or "icon").
func MatcherNames(field string) []string {
	var cascade []textMatcher
	switch field {
	case "intent":
		cascade = intentMatchers
	case "title":
		cascade = titleMatchers
	case "priority":
		cascade = priorityMatchers
	case "deadline":
		cascade = deadlineMatchers
	case "description":
		cascade = descriptionMatchers
	case "icon":
		names := make([]string, len(iconCategories))
		for i, c := range iconCategories {
			names[i] = c.name
		}
		return names
	default:
		return nil
	}
	names := make([]string, len(cascade))
	for i, m := range cascade {
		names[i] = m.name
	}
	return names
}

type goalExtractor struct {
	titleMax       int
	descriptionMax int
	deadlineDays   int
	now            func() time.Time
}

// NewGoalExtractor creates a GoalExtractor. Zero config values fall back to
// defaults (30-rune titles, 200-rune descriptions, deadline in 30 days). now
// may be nil to use the wall clock.
func NewGoalExtractor(cfg models.ExtractionConfig, now func() time.Time) GoalExtractor {
	e := &goalExtractor{
		titleMax:       cfg.TitleMaxLength,
		descriptionMax: cfg.DescriptionMaxLength,
		deadlineDays:   cfg.DefaultDeadlineDays,
		now:            now,
	}
	if e.titleMax <= 0 {
		e.titleMax = defaultTitleMaxLength
	}
	if e.descriptionMax <= 0 {
		e.descriptionMax = defaultDescriptionMaxLength
	}
	if e.deadlineDays <= 0 {
		e.deadlineDays = defaultDeadlineDays
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func (e *goalExtractor) ExtractGoalIntent(text string) (draft *models.GoalDraft) {
	// Extraction failures read as "no goal detected".
	defer func() {
		if r := recover(); r != nil {
			draft = nil
		}
	}()

	if strings.TrimSpace(text) == "" {
		return nil
	}
	if _, ok := e.runCascade(intentMatchers, text); !ok {
		return nil
	}

	title := e.extractTitle(text)
	return &models.GoalDraft{
		Title:          title,
		Description:    e.extractDescription(text),
		Priority:       e.extractPriority(text),
		Deadline:       e.extractDeadline(text),
		CompletionRate: 0,
		Icon:           iconFor(title),
	}
}

// runCascade returns the value of the first matcher that both matches and
// accepts its submatches.
func (e *goalExtractor) runCascade(cascade []textMatcher, text string) (string, bool) {
	for _, m := range cascade {
		for _, sub := range m.pattern.FindAllStringSubmatch(text, -1) {
			if v, ok := m.handle(e, sub); ok {
				return v, true
			}
		}
	}
	return "", false
}

func (e *goalExtractor) extractTitle(text string) string {
	if v, ok := e.runCascade(titleMatchers, text); ok {
		return truncateRunes(v, e.titleMax)
	}
	for _, line := range strings.Split(text, "\n") {
		if v := cleanTitle(stripMarkdownMarkers(line)); v != "" {
			return truncateRunes(v, e.titleMax)
		}
	}
	return fallbackTitle
}

func (e *goalExtractor) extractPriority(text string) models.GoalPriority {
	if v, ok := e.runCascade(priorityMatchers, text); ok {
		return models.GoalPriority(v)
	}
	return models.PriorityMedium
}

func (e *goalExtractor) extractDeadline(text string) string {
	if v, ok := e.runCascade(deadlineMatchers, text); ok {
		return v
	}
	return e.now().AddDate(0, 0, e.deadlineDays).Format(models.DeadlineLayout)
}

func (e *goalExtractor) extractDescription(text string) string {
	if v, ok := e.runCascade(descriptionMatchers, text); ok {
		return truncateRunes(v, e.descriptionMax)
	}
	return truncateRunes(strings.Join(strings.Fields(text), " "), e.descriptionMax)
}

// --- matcher handlers ---

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func captureTitle(_ *goalExtractor, m []string) (string, bool) {
	v := cleanTitle(firstGroup(m))
	return v, v != ""
}

var priorityWords = map[string]models.GoalPriority{
	"高":      models.PriorityHigh,
	"中":      models.PriorityMedium,
	"低":      models.PriorityLow,
	"high":   models.PriorityHigh,
	"medium": models.PriorityMedium,
	"low":    models.PriorityLow,
}

func capturePriority(_ *goalExtractor, m []string) (string, bool) {
	p, ok := priorityWords[strings.ToLower(firstGroup(m))]
	return string(p), ok
}

func captureFullDate(_ *goalExtractor, m []string) (string, bool) {
	if len(m) < 4 {
		return "", false
	}
	return formatDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
}

func capturePartialDate(e *goalExtractor, m []string) (string, bool) {
	if len(m) < 3 {
		return "", false
	}
	return formatDate(e.now().Year(), atoi(m[1]), atoi(m[2]))
}

// formatDate renders a calendar date as YYYY/MM/DD, rejecting dates that do
// not exist (month 13, February 30).
func formatDate(year, month, day int) (string, bool) {
	if year <= 0 || month < 1 || month > 12 || day < 1 {
		return "", false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Month() != time.Month(month) || d.Day() != day {
		return "", false
	}
	return d.Format(models.DeadlineLayout), true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// --- title helpers ---

var markdownMarker = regexp.MustCompile(`^\s*(?:#{1,6}|[-*+>•]|\d+[.)、])\s*`)

// stripMarkdownMarkers removes leading bullet, heading, quote and numbered
// list markers, plus bold/italic wrappers.
func stripMarkdownMarkers(line string) string {
	for {
		next := markdownMarker.ReplaceAllString(line, "")
		if next == line {
			break
		}
		line = next
	}
	line = strings.ReplaceAll(line, "**", "")
	line = strings.ReplaceAll(line, "__", "")
	return line
}

const titleTrimSet = " \t\r\"'“”‘’「」『』《》【】。，,.!！;；:：、"

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, titleTrimSet)
}

// truncateRunes shortens s to at most max runes. Longer strings keep max-3
// runes followed by "...".
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

func iconFor(title string) string {
	for _, c := range iconCategories {
		if c.words.MatchString(title) {
			return c.icon
		}
		for _, kw := range c.keywords {
			if strings.Contains(title, kw) {
				return c.icon
			}
		}
	}
	return defaultIcon
}
