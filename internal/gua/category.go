package gua

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Entry describes one hexagram of the category table.
type Entry struct {
	// Index is the King Wen sequence number, 1..64.
	Index int
	// Name is the simplified-script hexagram name.
	Name string
	// Pinyin is the ASCII romanization slug used in classical-corpus URLs.
	// Duplicate readings carry a numeric suffix (qian/qian1, kun/kun1, ...).
	Pinyin string
	// Lines is the line pattern, bottom line first, '1' for yang.
	Lines string
}

// Category is the read-only lookup table for one hexagram ordering.
// It is shared between the divination model and the full-text subsystem.
type Category struct {
	name    string
	entries []Entry

	byValue  map[int]int    // binary value -> King Wen index
	byName   map[string]int // simplified name -> King Wen index
	byIndex  map[int]Entry
	s2tChars map[rune]rune // simplified -> traditional character substitutions
}

// DefaultCategoryName identifies the built-in King Wen ("Houtian") ordering.
const DefaultCategoryName = "ZhouyiHoutian"

var (
	defaultOnce     sync.Once
	defaultCategory *Category
)

// DefaultCategory returns the process-wide King Wen table. The table is
// immutable after construction and safe for concurrent use.
func DefaultCategory() *Category {
	defaultOnce.Do(func() {
		defaultCategory = newCategory(DefaultCategoryName, kingWenEntries, s2tPairs)
	})
	return defaultCategory
}

func newCategory(name string, entries []Entry, s2t map[rune]rune) *Category {
	c := &Category{
		name:     name,
		entries:  entries,
		byValue:  make(map[int]int, len(entries)),
		byName:   make(map[string]int, len(entries)),
		byIndex:  make(map[int]Entry, len(entries)),
		s2tChars: s2t,
	}
	for _, e := range entries {
		v, err := strconv.ParseInt(e.Lines, 2, 32)
		if err != nil {
			panic(fmt.Sprintf("gua: bad line pattern %q for %s", e.Lines, e.Name))
		}
		c.byValue[int(v)] = e.Index
		c.byName[e.Name] = e.Index
		c.byIndex[e.Index] = e
	}
	return c
}

// Name returns the category identifier.
func (c *Category) Name() string { return c.name }

// IndexByValue resolves the binary line value to a King Wen index.
func (c *Category) IndexByValue(value int) (int, bool) {
	idx, ok := c.byValue[value]
	return idx, ok
}

// IndexByName reverse-looks-up a hexagram name.
func (c *Category) IndexByName(name string) (int, bool) {
	idx, ok := c.byName[name]
	return idx, ok
}

// Entry returns the full table entry for an index.
func (c *Category) Entry(index int) (Entry, bool) {
	e, ok := c.byIndex[index]
	return e, ok
}

// NameByIndex returns the simplified-script name for an index.
func (c *Category) NameByIndex(index int) (string, bool) {
	e, ok := c.byIndex[index]
	if !ok {
		return "", false
	}
	return e.Name, true
}

// PinyinByIndex returns the romanization slug for an index.
func (c *Category) PinyinByIndex(index int) (string, bool) {
	e, ok := c.byIndex[index]
	if !ok {
		return "", false
	}
	return e.Pinyin, true
}

// ToTraditional converts a simplified-script name character by character.
// Characters without a mapping pass through unchanged.
func (c *Category) ToTraditional(name string) string {
	if len(c.s2tChars) == 0 {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		if t, ok := c.s2tChars[r]; ok {
			b.WriteRune(t)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Entries returns the table in King Wen order.
func (c *Category) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// kingWenEntries lists all 64 hexagrams in King Wen order. Line patterns
// are read bottom line first; the lower trigram occupies the first three
// characters.
var kingWenEntries = []Entry{
	{1, "乾", "qian", "111111"},
	{2, "坤", "kun", "000000"},
	{3, "屯", "zhun", "100010"},
	{4, "蒙", "meng", "010001"},
	{5, "需", "xu", "111010"},
	{6, "讼", "song", "010111"},
	{7, "师", "shi", "010000"},
	{8, "比", "bi", "000010"},
	{9, "小畜", "xiao-xu", "111011"},
	{10, "履", "lu", "110111"},
	{11, "泰", "tai", "111000"},
	{12, "否", "pi", "000111"},
	{13, "同人", "tong-ren", "101111"},
	{14, "大有", "da-you", "111101"},
	{15, "谦", "qian1", "001000"},
	{16, "豫", "yu", "000100"},
	{17, "随", "sui", "100110"},
	{18, "蛊", "gu", "011001"},
	{19, "临", "lin", "110000"},
	{20, "观", "guan", "000011"},
	{21, "噬嗑", "shi-ke", "100101"},
	{22, "贲", "bi1", "101001"},
	{23, "剥", "bo", "000001"},
	{24, "复", "fu", "100000"},
	{25, "无妄", "wu-wang", "100111"},
	{26, "大畜", "da-xu", "111001"},
	{27, "颐", "yi", "100001"},
	{28, "大过", "da-guo", "011110"},
	{29, "坎", "kan", "010010"},
	{30, "离", "li", "101101"},
	{31, "咸", "xian", "001110"},
	{32, "恒", "heng", "011100"},
	{33, "遁", "dun", "001111"},
	{34, "大壮", "da-zhuang", "111100"},
	{35, "晋", "jin", "000101"},
	{36, "明夷", "ming-yi", "101000"},
	{37, "家人", "jia-ren", "101011"},
	{38, "睽", "kui", "110101"},
	{39, "蹇", "jian", "001010"},
	{40, "解", "jie", "010100"},
	{41, "损", "sun", "110001"},
	{42, "益", "yi1", "100011"},
	{43, "夬", "guai", "111110"},
	{44, "姤", "gou", "011111"},
	{45, "萃", "cui", "000110"},
	{46, "升", "sheng", "011000"},
	{47, "困", "kun1", "010110"},
	{48, "井", "jing", "011010"},
	{49, "革", "ge", "101110"},
	{50, "鼎", "ding", "011101"},
	{51, "震", "zhen", "100100"},
	{52, "艮", "gen", "001001"},
	{53, "渐", "jian1", "001011"},
	{54, "归妹", "gui-mei", "110100"},
	{55, "丰", "feng", "101100"},
	{56, "旅", "lu1", "001101"},
	{57, "巽", "xun", "011011"},
	{58, "兑", "dui", "110110"},
	{59, "涣", "huan", "010011"},
	{60, "节", "jie1", "110010"},
	{61, "中孚", "zhong-fu", "110011"},
	{62, "小过", "xiao-guo", "001100"},
	{63, "既济", "ji-ji", "101010"},
	{64, "未济", "wei-ji", "010101"},
}

// s2tPairs covers the characters of the hexagram names whose traditional
// form differs from the simplified one.
var s2tPairs = map[rune]rune{
	'讼': '訟',
	'师': '師',
	'谦': '謙',
	'随': '隨',
	'蛊': '蠱',
	'临': '臨',
	'观': '觀',
	'贲': '賁',
	'剥': '剝',
	'复': '復',
	'无': '無',
	'颐': '頤',
	'过': '過',
	'离': '離',
	'壮': '壯',
	'晋': '晉',
	'损': '損',
	'渐': '漸',
	'归': '歸',
	'丰': '豐',
	'兑': '兌',
	'涣': '渙',
	'节': '節',
	'济': '濟',
}
