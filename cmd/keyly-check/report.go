package main

import (
	"keyly/internal/resolver"
	"keyly/internal/settings"
	"keyly/internal/sheets"
)

type report struct {
	Dir      string          `json:"dir" yaml:"dir"`
	Settings settingsReport  `json:"settings" yaml:"settings"`
	Sheets   []sheetReport   `json:"sheets" yaml:"sheets"`
	Global   int             `json:"globalEntries" yaml:"global_entries"`
	Warnings []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Resolved *resolvedReport `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

type settingsReport struct {
	Trigger          string  `json:"trigger" yaml:"trigger"`
	TriggerType      string  `json:"triggerType" yaml:"trigger_type"`
	ScreenWidthRatio float64 `json:"screenWidthRatio" yaml:"screen_width_ratio"`
}

func newSettingsReport(s settings.Settings) settingsReport {
	trig := s.Trigger.OrDefault()
	return settingsReport{
		Trigger:          trig.Combo.String(),
		TriggerType:      trig.Type.String(),
		ScreenWidthRatio: s.ScreenWidthRatio,
	}
}

type sheetReport struct {
	Name        string `json:"name" yaml:"name"`
	App         string `json:"app" yaml:"app"`
	AppID       string `json:"appId,omitempty" yaml:"app_id,omitempty"`
	Source      string `json:"source" yaml:"source"`
	Entries     int    `json:"entries" yaml:"entries"`
	HideDefault bool   `json:"hideDefault,omitempty" yaml:"hide_default,omitempty"`
}

type resolvedReport struct {
	AppID                string            `json:"appId" yaml:"app_id"`
	Search               string            `json:"search,omitempty" yaml:"search,omitempty"`
	UsedDefaults         bool              `json:"usedDefaults,omitempty" yaml:"used_defaults,omitempty"`
	HidDefaults          bool              `json:"hidDefaults,omitempty" yaml:"hid_defaults,omitempty"`
	Entries              []sheets.Entry    `json:"entries" yaml:"entries"`
	CategoryDescriptions map[string]string `json:"categoryDescriptions,omitempty" yaml:"category_descriptions,omitempty"`
	GroupDescriptions    map[string]string `json:"groupDescriptions,omitempty" yaml:"group_descriptions,omitempty"`
}

func newResolvedReport(res resolver.Result, search string) *resolvedReport {
	return &resolvedReport{
		AppID:                res.AppID,
		Search:               search,
		UsedDefaults:         res.UsedDefaults,
		HidDefaults:          res.HidDefaults,
		Entries:              res.Entries,
		CategoryDescriptions: res.CategoryDescriptions,
		GroupDescriptions:    res.GroupDescriptions,
	}
}
