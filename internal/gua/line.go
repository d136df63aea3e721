// Package gua models hexagrams of the Zhouyi: lines, the King Wen
// category table, and the value object combining six cast lines.
package gua

import "fmt"

// Line is the counted value of one cast line: 6, 7, 8 or 9.
type Line int

// Line values produced by the yarrow-stalk count.
const (
	OldYin    Line = 6
	YoungYang Line = 7
	YoungYin  Line = 8
	OldYang   Line = 9
)

// Polarity is the yin/yang reading of a line.
type Polarity int

const (
	Yin  Polarity = 0
	Yang Polarity = 1
)

// Valid reports whether l is one of the four castable values.
func (l Line) Valid() bool {
	return l >= OldYin && l <= OldYang
}

// Polarity maps a line value to yin or yang.
func (l Line) Polarity() (Polarity, error) {
	switch l {
	case OldYin, YoungYin:
		return Yin, nil
	case YoungYang, OldYang:
		return Yang, nil
	default:
		return 0, fmt.Errorf("gua: invalid line value %d", int(l))
	}
}

// Moving reports whether the line is an old (changing) line.
func (l Line) Moving() bool {
	return l == OldYin || l == OldYang
}

func (l Line) String() string {
	switch l {
	case OldYin:
		return "old-yin"
	case YoungYang:
		return "young-yang"
	case YoungYin:
		return "young-yin"
	case OldYang:
		return "old-yang"
	}
	return fmt.Sprintf("line(%d)", int(l))
}
