package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

// geminiSchema 是 generationConfig.responseSchema 接受的 OpenAPI 子集。
// 长度、正则、additionalProperties 这类约束 Gemini 不支持，由服务端校验器负责。
type geminiSchema struct {
	Type       string                   `json:"type"`
	Enum       []string                 `json:"enum,omitempty"`
	Properties map[string]*geminiSchema `json:"properties,omitempty"`
	Required   []string                 `json:"required,omitempty"`
	Items      *geminiSchema            `json:"items,omitempty"`
	MinItems   *int                     `json:"minItems,omitempty"`
	MaxItems   *int                     `json:"maxItems,omitempty"`
}

// jsonSchema 请求里携带的 JSON Schema 中会被转换的字段
type jsonSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]*jsonSchema `json:"properties"`
	Required   []string               `json:"required"`
	Items      *jsonSchema            `json:"items"`
	MinItems   *int                   `json:"minItems"`
	MaxItems   *int                   `json:"maxItems"`
	Enum       []any                  `json:"enum"`
	Const      any                    `json:"const"`
}

var schemaTypes = map[string]string{
	"string":  "STRING",
	"number":  "NUMBER",
	"integer": "INTEGER",
	"boolean": "BOOLEAN",
	"object":  "OBJECT",
	"array":   "ARRAY",
}

// toResponseSchema 把 JSON Schema 转成 Gemini responseSchema；raw 为空时返回 nil
func toResponseSchema(raw json.RawMessage) (*geminiSchema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var js jsonSchema
	if err := json.Unmarshal(raw, &js); err != nil {
		return nil, fmt.Errorf("decode response schema: %w", err)
	}
	return convertSchema(&js, "")
}

func convertSchema(js *jsonSchema, path string) (*geminiSchema, error) {
	t, ok := schemaTypes[strings.ToLower(js.Type)]
	if !ok {
		return nil, fmt.Errorf("response schema %s: unsupported type %q", pathOrRoot(path), js.Type)
	}
	gs := &geminiSchema{Type: t, Required: js.Required, MinItems: js.MinItems, MaxItems: js.MaxItems}

	// const 只能以单值 enum 表达；非字符串 enum Gemini 不接受，交给校验器
	switch c := js.Const.(type) {
	case string:
		gs.Enum = []string{c}
	case nil:
		gs.Enum = stringEnum(js.Enum)
	}

	if len(js.Properties) > 0 {
		gs.Properties = make(map[string]*geminiSchema, len(js.Properties))
		for name, prop := range js.Properties {
			if prop == nil {
				continue
			}
			sub, err := convertSchema(prop, path+"."+name)
			if err != nil {
				return nil, err
			}
			gs.Properties[name] = sub
		}
	}
	if js.Items != nil {
		sub, err := convertSchema(js.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		gs.Items = sub
	}
	return gs, nil
}

func stringEnum(values []any) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func pathOrRoot(path string) string {
	if path == "" {
		return "root"
	}
	return strings.TrimPrefix(path, ".")
}
