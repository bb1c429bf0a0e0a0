// Package assistant routes chat messages to canned replies, the forecast
// engine, the alarm scheduler or the language model.
package assistant

import "strings"

// IntentKind identifies how a message is answered.
type IntentKind int

// Intent kinds, in matching priority after the first-turn greeting.
const (
	IntentGeneralQuery IntentKind = iota
	IntentGreeting
	IntentForecast
	IntentAlarm
	IntentTopic
)

func (k IntentKind) String() string {
	switch k {
	case IntentGreeting:
		return "greeting"
	case IntentForecast:
		return "forecast"
	case IntentAlarm:
		return "alarm"
	case IntentTopic:
		return "topic"
	default:
		return "general"
	}
}

// Intent is a classified message. Topic is set for IntentTopic.
type Intent struct {
	Kind  IntentKind
	Topic string
}

var (
	forecastTriggers = []string{"tahmin", "gelecek harcama", "forecast", "future expense"}
	alarmTriggers    = []string{"alarm", "bildirim", "hatırlat"}
)

// topics maps a glossary term to its canned definition.
var topics = map[string]string{
	"virman": "Virman, aynı kişiye ait iki banka hesabı arasında yapılan para transferidir.",
	"kefil":  "Kefil, borçlunun borcunu ödeyememesi durumunda borcu ödemeyi üstlenen kişidir.",
}

// topicOrder keeps matching deterministic when a message names several topics.
var topicOrder = []string{"virman", "kefil"}

// Classify decides how to answer message given the number of earlier turns
// in the conversation. Matching is case-insensitive.
func Classify(message string, priorTurns int) Intent {
	if priorTurns == 0 {
		return Intent{Kind: IntentGreeting}
	}
	m := normalize(message)
	if containsAny(m, forecastTriggers) {
		return Intent{Kind: IntentForecast}
	}
	if containsAny(m, alarmTriggers) {
		return Intent{Kind: IntentAlarm}
	}
	for _, t := range topicOrder {
		if strings.Contains(m, t) {
			return Intent{Kind: IntentTopic, Topic: t}
		}
	}
	return Intent{Kind: IntentGeneralQuery}
}

// TopicDefinition returns the canned answer for a glossary topic.
func TopicDefinition(topic string) (string, bool) {
	d, ok := topics[topic]
	return d, ok
}

// normalize lowercases and folds both Turkish i forms onto ASCII i, so
// "HATIRLAT", "hatırlat" and "hatirlat" all compare equal.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.ReplaceAll(s, "İ", "I")), "ı", "i")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, normalize(n)) {
			return true
		}
	}
	return false
}
