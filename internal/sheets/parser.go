package sheets

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Directive keywords, matched case-insensitively after the leading "#".
const (
	directiveSheetName   = "sheet name"
	directiveApp         = "app"
	directiveHideDefault = "hide default"
	directiveGroup       = "group"
)

const groupDescriptionSeparator = " - "

// document is the format-neutral result of parsing one definition file.
type document struct {
	name                 string
	appPath              string
	hideDefault          bool
	entries              []Entry
	categoryDescriptions map[string]string
	groupDescriptions    map[string]string
	warnings             []Warning
}

type parseMode int

const (
	modeSheet parseMode = iota
	modeGlobal
)

// parseDocument runs the line grammar over r. Category and group context is
// carried top to bottom; a group stays open across category headers until
// the next group directive.
func parseDocument(r io.Reader, source string, mode parseMode) document {
	defaultCategory := DefaultCategory
	if mode == modeGlobal {
		defaultCategory = DefaultGlobalCategory
	}

	doc := document{
		categoryDescriptions: map[string]string{},
		groupDescriptions:    map[string]string{},
	}
	warn := func(line int, format string, args ...any) {
		doc.warnings = append(doc.warnings, Warning{File: source, Line: line, Message: fmt.Sprintf(format, args...)})
	}

	category := defaultCategory
	group := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSheetFileBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			keyword, value, ok := splitDirective(line)
			if !ok {
				continue // comment
			}
			switch keyword {
			case directiveSheetName:
				if value == "" {
					warn(lineNo, "empty sheet name ignored")
					continue
				}
				doc.name = value
			case directiveApp:
				if mode == modeGlobal {
					warn(lineNo, "App directive is not allowed in %s, ignored", GlobalFileName)
					continue
				}
				doc.appPath = value
			case directiveHideDefault:
				if mode == modeGlobal {
					warn(lineNo, "Hide Default directive is not allowed in %s, ignored", GlobalFileName)
					continue
				}
				doc.hideDefault = parseBoolish(value)
			case directiveGroup:
				name, desc := splitGroup(value)
				if name == "" {
					warn(lineNo, "blank group name ignored")
					continue
				}
				group = name
				if desc != "" {
					if _, exists := doc.groupDescriptions[name]; !exists {
						doc.groupDescriptions[name] = desc
					}
				}
			}
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			category = strings.TrimSpace(line[1 : len(line)-1])
			if category == "" {
				category = defaultCategory
			}
			continue
		}

		if desc, ok := strings.CutPrefix(line, ">"); ok {
			doc.categoryDescriptions[category] = strings.TrimSpace(desc)
			continue
		}

		raw, action := splitShortcutLine(line)
		normalized := Normalize(raw)
		if !HasModifierGlyph(normalized) {
			slog.Debug("[DEBUG-SHEETS] line without modifier skipped", "source", source, "line", lineNo)
			continue
		}
		if action == "" {
			warn(lineNo, "shortcut %q has no action", raw)
			continue
		}
		entry, ok := NewEntry(category, action, raw, group)
		if !ok {
			warn(lineNo, "invalid shortcut line %q", line)
			continue
		}
		doc.entries = append(doc.entries, entry)
	}
	if err := scanner.Err(); err != nil {
		warn(0, "read: %v", err)
	}
	return doc
}

// splitDirective recognizes "# Keyword: value". ok is false for plain comments.
func splitDirective(line string) (keyword, value string, ok bool) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	head, tail, found := strings.Cut(body, ":")
	if !found {
		return "", "", false
	}
	keyword = strings.ToLower(strings.Join(strings.Fields(head), " "))
	switch keyword {
	case directiveSheetName, directiveApp, directiveHideDefault, directiveGroup:
		return keyword, strings.TrimSpace(tail), true
	default:
		return "", "", false
	}
}

func splitGroup(value string) (name, description string) {
	name, description, _ = strings.Cut(value, groupDescriptionSeparator)
	return strings.TrimSpace(name), strings.TrimSpace(description)
}

func splitShortcutLine(line string) (raw, action string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func parseBoolish(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
