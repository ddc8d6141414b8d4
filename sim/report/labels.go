// Package report renders simulation results for people: localized text
// summaries, CSV for plotting tools and XLSX workbooks.
package report

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported lists the report languages, default first.
var Supported = []language.Tag{language.English, language.Japanese}

var matcher = language.NewMatcher(Supported)

// Message keys double as the English text.
const (
	msgTitle       = "Opioid PK/PD Simulation"
	msgDrug        = "Drug: %s (%s)"
	msgModel       = "Model: %s"
	msgPatient     = "Patient: %.1f kg, %.0f y, %.0f cm, %s"
	msgRange       = "Therapeutic range (ng/mL): %s"
	msgDoses       = "Doses:"
	msgNoDoses     = "  (none)"
	msgBolus       = "  Bolus %g %s at %s (%g min)"
	msgInfusion    = "  Infusion %g %s/h at %s (%g min) for %g min"
	msgTime        = "Time (min)"
	msgClock       = "Clock"
	msgClockMode   = "Clock Mode"
	msgPeakCp      = "Peak Cp: %.3f ng/mL at %s"
	msgPeakCe      = "Peak Ce: %.3f ng/mL at %s"
	msgInRange     = "Ce in analgesic range: %g min"
	msgAtRisk      = "Ce above respiratory risk: %g min"
	msgOnset       = "Analgesic onset: %s"
	msgNoOnset     = "Analgesic onset: not reached"
	msgNow         = "Now"
	msgNowReading  = "Now %s (sim minute %d): Cp %.3f ng/mL, Ce %.3f ng/mL"
	msgNowInactive = "Now %s (sim minute %d): outside the simulated window"
	msgCompare     = "Model comparison"
	msgModelCol    = "Model"
	msgV1Col       = "V1 (L)"
	msgPeakCpCol   = "Peak Cp"
	msgPeakCeCol   = "Peak Ce"
	msgPeakCeAtCol = "Peak Ce at"
)

var japanese = map[string]string{
	msgTitle:       "オピオイド PK/PD シミュレーション",
	msgDrug:        "薬剤: %s (%s)",
	msgModel:       "モデル: %s",
	msgPatient:     "患者: %.1f kg、%.0f 歳、%.0f cm、%s",
	msgRange:       "治療域 (ng/mL): %s",
	msgDoses:       "投与:",
	msgNoDoses:     "  (なし)",
	msgBolus:       "  ボーラス %g %s %s (%g 分)",
	msgInfusion:    "  持続投与 %g %s/h %s (%g 分) から %g 分間",
	msgTime:        "時間 (分)",
	msgClock:       "時刻",
	msgClockMode:   "時間入力モード",
	msgPeakCp:      "最大 Cp: %.3f ng/mL (%s)",
	msgPeakCe:      "最大 Ce: %.3f ng/mL (%s)",
	msgInRange:     "Ce 鎮痛域内: %g 分",
	msgAtRisk:      "Ce 呼吸抑制リスク超過: %g 分",
	msgOnset:       "鎮痛効果発現: %s",
	msgNoOnset:     "鎮痛効果発現: 未到達",
	msgNow:         "現在",
	msgNowReading:  "現在 %s (シミュレーション %d 分): Cp %.3f ng/mL、Ce %.3f ng/mL",
	msgNowInactive: "現在 %s (シミュレーション %d 分): シミュレーション範囲外",
	msgCompare:     "モデル比較",
	msgModelCol:    "モデル",
	msgV1Col:       "V1 (L)",
	msgPeakCpCol:   "最大 Cp",
	msgPeakCeCol:   "最大 Ce",
	msgPeakCeAtCol: "最大 Ce 時刻",
}

func init() {
	for key, msg := range japanese {
		if err := message.SetString(language.Japanese, key, msg); err != nil {
			panic(fmt.Sprintf("report: registering %q: %v", key, err))
		}
	}
}

// ParseLang picks the closest supported language for a tag such as "ja"
// or "en-US". Anything unrecognized falls back to English.
func ParseLang(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return Supported[idx]
}

// NewPrinter returns a printer for one of the Supported languages.
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// UILabels returns the labels a chart renderer shows around the series,
// keyed the way the web front end names them.
func UILabels(lang language.Tag) map[string]string {
	p := NewPrinter(lang)
	return map[string]string{
		"appTitle":  p.Sprintf(msgTitle),
		"now":       p.Sprintf(msgNow),
		"clockMode": p.Sprintf(msgClockMode),
		"time":      p.Sprintf(msgTime),
		"clock":     p.Sprintf(msgClock),
		"model":     p.Sprintf(msgModelCol),
	}
}
