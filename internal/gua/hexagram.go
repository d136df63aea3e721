package gua

import (
	"fmt"
	"strconv"
	"strings"
)

// Hexagram is the value object built from six cast lines. The binary
// representation reads bottom line first, so the bottom line is the most
// significant bit of Value.
type Hexagram struct {
	Lines  []Line
	Binary string
	Value  int
	Index  int
	Name   string
	Pinyin string
}

// New builds a Hexagram from exactly six lines, resolving its King Wen
// index and name against the category table.
func New(lines []Line, cat *Category) (Hexagram, error) {
	if len(lines) != 6 {
		return Hexagram{}, fmt.Errorf("gua: a hexagram needs 6 lines, got %d", len(lines))
	}
	if cat == nil {
		cat = DefaultCategory()
	}

	var b strings.Builder
	for _, l := range lines {
		p, err := l.Polarity()
		if err != nil {
			return Hexagram{}, err
		}
		if p == Yang {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	binary := b.String()
	value64, err := strconv.ParseInt(binary, 2, 32)
	if err != nil {
		return Hexagram{}, fmt.Errorf("gua: parse binary %q: %w", binary, err)
	}
	value := int(value64)

	index, ok := cat.IndexByValue(value)
	if !ok {
		return Hexagram{}, fmt.Errorf("gua: no index for binary value %d", value)
	}
	name, ok := cat.NameByIndex(index)
	if !ok {
		return Hexagram{}, fmt.Errorf("gua: no name for index %d", index)
	}
	pinyin, _ := cat.PinyinByIndex(index)

	return Hexagram{
		Lines:  append([]Line(nil), lines...),
		Binary: binary,
		Value:  value,
		Index:  index,
		Name:   name,
		Pinyin: pinyin,
	}, nil
}

func (h Hexagram) String() string {
	return fmt.Sprintf("Hexagram(name=%q, binary=%s, value=%d)", h.Name, h.Binary, h.Value)
}
