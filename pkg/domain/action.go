package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ActionKind identifies the transformation requested from the worker.
// The token is passed verbatim as the worker's first positional argument.
type ActionKind string

const (
	ActionSimplify        ActionKind = "simplify"
	ActionTraditionalize  ActionKind = "traditionalize"
	ActionTranslateEN     ActionKind = "translate_en"
	ActionTranslateZhSimp ActionKind = "translate_zh_simp"
	ActionTranslateZhTrad ActionKind = "translate_zh_trad"
	ActionTranslateDE     ActionKind = "translate_de"
	ActionTranslateVI     ActionKind = "translate_vi"
)

// ActionCategory groups actions by the kind of work the worker performs.
type ActionCategory string

const (
	CategoryScript      ActionCategory = "script"
	CategoryTranslation ActionCategory = "translation"
)

// ActionInfo describes an ActionKind for listings and diagnostics.
type ActionInfo struct {
	Kind        ActionKind     `json:"kind" yaml:"kind" mapstructure:"kind"`
	Category    ActionCategory `json:"category" yaml:"category" mapstructure:"category"`
	Target      language.Tag   `json:"target" yaml:"target" mapstructure:"target"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
}

// actionTable is ordered the way actions are presented to users.
var actionTable = []ActionInfo{
	{ActionSimplify, CategoryScript, language.SimplifiedChinese, "Convert Traditional Chinese to Simplified Chinese"},
	{ActionTraditionalize, CategoryScript, language.TraditionalChinese, "Convert Simplified Chinese to Traditional Chinese"},
	{ActionTranslateEN, CategoryTranslation, language.English, "Translate Chinese segments to English"},
	{ActionTranslateZhSimp, CategoryTranslation, language.SimplifiedChinese, "Translate English words to Simplified Chinese"},
	{ActionTranslateZhTrad, CategoryTranslation, language.TraditionalChinese, "Translate English words to Traditional Chinese"},
	{ActionTranslateDE, CategoryTranslation, language.German, "Translate Chinese segments to German"},
	{ActionTranslateVI, CategoryTranslation, language.Vietnamese, "Translate Chinese segments to Vietnamese"},
}

// Actions returns every supported action in presentation order.
func Actions() []ActionInfo {
	out := make([]ActionInfo, len(actionTable))
	copy(out, actionTable)
	return out
}

// Info returns the descriptor of a known action.
func (a ActionKind) Info() (ActionInfo, bool) {
	for _, info := range actionTable {
		if info.Kind == a {
			return info, true
		}
	}
	return ActionInfo{}, false
}

// Valid reports whether a is one of the supported actions.
func (a ActionKind) Valid() bool {
	_, ok := a.Info()
	return ok
}

func (a ActionKind) String() string {
	return string(a)
}

// ParseAction validates a raw token. Matching is exact after trimming
// surrounding whitespace; the worker does not accept other spellings.
func ParseAction(raw string) (ActionKind, error) {
	kind := ActionKind(strings.TrimSpace(raw))
	if !kind.Valid() {
		return "", unsupportedAction(raw)
	}
	return kind, nil
}

func unsupportedAction(raw string) *ConversionError {
	return NewError(KindInvalidInput, fmt.Sprintf("unsupported action %q (supported: %s)", raw, strings.Join(ActionNames(), ", ")))
}

// ActionNames lists the tokens of every supported action.
func ActionNames() []string {
	names := make([]string, 0, len(actionTable))
	for _, info := range actionTable {
		names = append(names, string(info.Kind))
	}
	return names
}
