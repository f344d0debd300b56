package domain

import "strings"

// Поля записи разрешения, извлекаемые при импорте
const (
	FieldName     = "name"
	FieldComment  = "comment"
	FieldCategory = "category"
	FieldProjID   = "proj_id"
	FieldLink     = "link"
	FieldStatus   = "status"
)

// Township описывает, как данные конкретного посёлка переводятся во
// внутренний формат: соответствие исходных полей, интересующие категории и
// исключаемые комментарии.
type Township struct {
	Name            string
	Mapping         map[string]string
	Categories      []string
	ExcludeComments []string
}

// Townships - поддерживаемые источники данных
var Townships = map[string]Township{
	"cary": {
		Name: "cary",
		Mapping: map[string]string{
			"ProjectName": FieldName,
			"Comments":    FieldComment,
			"Type":        FieldCategory,
			"ID":          FieldProjID,
			"Link":        FieldLink,
		},
		Categories: []string{"Site/Sub Plan", "Rezoning Case"},
	},
	"apex": {
		Name: "apex",
		Mapping: map[string]string{
			"More_Info": FieldLink,
			"Type":      FieldCategory,
			"Status":    FieldStatus,
			"FID":       FieldProjID,
			"Name":      FieldName,
		},
		Categories: []string{"Mixed Use", "Non-Residential"},
	},
	"morrisville": {
		Name: "morrisville",
		Mapping: map[string]string{
			"PROPDESC":   FieldName,
			"BILCLDECOD": FieldCategory,
			"DEV_STATUS": FieldStatus,
			"PIN_NUM":    FieldProjID,
			"LANDDECODE": FieldComment,
		},
		Categories:      []string{"Business", "CORPORATE LISTING"},
		ExcludeComments: []string{"VACANT"},
	},
}

// PermitFields - извлечённые поля записи (пустая строка - поле отсутствует)
type PermitFields struct {
	Name     string `json:"name,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Category string `json:"category,omitempty"`
	ProjID   string `json:"proj_id,omitempty"`
	Link     string `json:"link,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Extract переводит исходные свойства в PermitFields по Mapping
func (t Township) Extract(props map[string]interface{}) PermitFields {
	var f PermitFields
	for src, dst := range t.Mapping {
		raw, ok := props[src]
		if !ok || raw == nil {
			continue
		}
		value := strings.TrimSpace(toString(raw))
		switch dst {
		case FieldName:
			f.Name = value
		case FieldComment:
			f.Comment = value
		case FieldCategory:
			f.Category = value
		case FieldProjID:
			f.ProjID = value
		case FieldLink:
			f.Link = value
		case FieldStatus:
			f.Status = value
		}
	}
	return f
}

// Interesting - попадает ли запись в интересующие категории
func (t Township) Interesting(f PermitFields) bool {
	if f.Category == "" {
		return false
	}
	matched := false
	for _, c := range t.Categories {
		if c == f.Category {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, c := range t.ExcludeComments {
		if c == f.Comment {
			return false
		}
	}
	return true
}
