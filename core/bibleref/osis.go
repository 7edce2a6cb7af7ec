package bibleref

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/scrinium/bibrange/core/books"
	"github.com/scrinium/bibrange/core/errors"
	"github.com/scrinium/bibrange/core/rangecode"
)

// osisRef is the participle grammar for OSIS-style references.
// Examples: "Gen", "Gen.1", "Gen.1-3", "Gen.1.1", "John.3.16a",
// "Matt.5.3-12", "Gen.1.1-2.3"
//
//nolint:govet // participle grammar tags are not standard struct tags
type osisRef struct {
	BookPrefix string           `@Int?`
	BookName   string           `@Ident`
	Chapter    *osisChapterPart `( "." @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type osisChapterPart struct {
	Chapter    int            `@Int`
	Verse      *osisVersePart `( "." @@`
	EndChapter *int           `| "-" @Int )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type osisVersePart struct {
	Verse    int          `@Int`
	SubVerse *string      `@SubVerse?`
	End      *osisEndPart `( "-" @@ )?`
}

// osisEndPart is the right side of a range: either a bare verse ("-12") or
// a chapter.verse pair ("-2.3").
//
//nolint:govet // participle grammar tags are not standard struct tags
type osisEndPart struct {
	First    int     `@Int`
	Second   *int    `( "." @Int )?`
	SubVerse *string `@SubVerse?`
}

// osisLexer tokenizes OSIS references. Ident starts with uppercase to
// distinguish book names from the single-lowercase sub-verse marker.
var osisLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Z][A-Za-z]*`},
	{Name: "SubVerse", Pattern: `[a-z]`},
	{Name: "Punct", Pattern: `[.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var osisParser = participle.MustBuild[osisRef](
	participle.Lexer(osisLexer),
	participle.Elide("Whitespace"),
)

// osisBooks maps lower-cased OSIS book IDs to canonical book tokens.
var osisBooks = map[string]string{
	"gen": "1mose", "exod": "2mose", "lev": "3mose", "num": "4mose",
	"deut": "5mose", "josh": "josua", "judg": "richter", "ruth": "rut",
	"1sam": "1sam", "2sam": "2sam", "1kgs": "1koen", "2kgs": "2koen",
	"1chr": "1chr", "2chr": "2chr", "ezra": "esra", "neh": "nehemia",
	"esth": "ester", "job": "hiob", "ps": "psalm", "prov": "sprueche",
	"eccl": "prediger", "song": "hohelied", "isa": "jesaja", "jer": "jeremia",
	"lam": "klagelieder", "ezek": "ezechiel", "dan": "daniel", "hos": "hosea",
	"joel": "joel", "amos": "amos", "obad": "obadja", "jonah": "jona",
	"mic": "micha", "nah": "nahum", "hab": "habakuk", "zeph": "zefanja",
	"hag": "haggai", "zech": "sacharja", "mal": "maleachi",
	"matt": "matthaeus", "mark": "markus", "luke": "lukas", "john": "johannes",
	"acts": "apg", "rom": "roemer", "1cor": "1kor", "2cor": "2kor",
	"gal": "galater", "eph": "epheser", "phil": "philipper", "col": "kolosser",
	"1thess": "1thess", "2thess": "2thess", "1tim": "1tim", "2tim": "2tim",
	"titus": "titus", "phlm": "philemon", "heb": "hebraeer", "jas": "jakobus",
	"1pet": "1petr", "2pet": "2petr", "1john": "1joh", "2john": "2joh",
	"3john": "3joh", "jude": "judas", "rev": "offenbarung",
	"tob": "tobit", "jdt": "judit", "1macc": "1makk", "2macc": "2makk",
	"3macc": "3makk", "wis": "weisheit", "sir": "sirach", "bar": "baruch",
	"1esd": "3esra", "2esd": "4esra", "prman": "manasse",
}

// ParseOSIS parses an OSIS-style reference and encodes it as a range using
// the given code mapper. Sub-verse markers are accepted and ignored, the
// same lenience the citation grammars give annotation letters.
func ParseOSIS(s string, codes *books.CodeMapper) (rangecode.Range, error) {
	var zero rangecode.Range
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return zero, errors.NewParse("osis reference", s, "empty reference")
	}

	parsed, err := osisParser.ParseString("", trimmed)
	if err != nil {
		return zero, &errors.ParseError{Grammar: "osis reference", Input: trimmed, Err: err}
	}

	canonical, ok := osisBooks[strings.ToLower(parsed.BookPrefix+parsed.BookName)]
	if !ok {
		return zero, errors.NewNotFound("osis book", parsed.BookPrefix+parsed.BookName)
	}
	code := codes.CodeFor(canonical)
	if code == "" {
		return zero, errors.NewNotFound("book code", canonical)
	}

	if parsed.Chapter == nil {
		return wholeBookRange(code), nil
	}
	cp := parsed.Chapter
	chapter, err := padComponent(cp.Chapter, ChapterWidth, trimmed, "chapter")
	if err != nil {
		return zero, err
	}

	switch {
	case cp.EndChapter != nil:
		endChapter, err := padComponent(*cp.EndChapter, ChapterWidth, trimmed, "chapter")
		if err != nil {
			return zero, err
		}
		r := rangecode.Range{
			Start: code + chapter + strings.Repeat("0", VerseWidth),
			End:   code + endChapter + strings.Repeat("9", VerseWidth),
		}
		if r.End <= r.Start {
			return zero, errors.NewParse("osis reference", trimmed, "chapter range runs backwards")
		}
		return r, nil

	case cp.Verse == nil:
		return rangecode.Range{
			Start: code + chapter + strings.Repeat("0", VerseWidth),
			End:   code + chapter + strings.Repeat("9", VerseWidth),
		}, nil
	}

	vp := cp.Verse
	verse, err := padComponent(vp.Verse, VerseWidth, trimmed, "verse")
	if err != nil {
		return zero, err
	}
	start := code + chapter + verse
	if vp.End == nil {
		return rangecode.Range{Start: start, End: start}, nil
	}

	var end string
	if vp.End.Second != nil {
		endChapter, err := padComponent(vp.End.First, ChapterWidth, trimmed, "chapter")
		if err != nil {
			return zero, err
		}
		endVerse, err := padComponent(*vp.End.Second, VerseWidth, trimmed, "verse")
		if err != nil {
			return zero, err
		}
		end = code + endChapter + endVerse
	} else {
		endVerse, err := padComponent(vp.End.First, VerseWidth, trimmed, "verse")
		if err != nil {
			return zero, err
		}
		end = code + chapter + endVerse
	}
	if end <= start {
		return zero, errors.NewParse("osis reference", trimmed, "verse range runs backwards")
	}
	return rangecode.Range{Start: start, End: end}, nil
}

func wholeBookRange(code string) rangecode.Range {
	return rangecode.Range{
		Start: code + strings.Repeat("0", ChapterWidth+VerseWidth),
		End:   code + strings.Repeat("9", ChapterWidth+VerseWidth),
	}
}

func padComponent(n, width int, input, what string) (string, error) {
	if n < 0 || n >= 1000 {
		return "", errors.NewParse("osis reference", input, what+" out of range")
	}
	return rangecode.PadLeading(strconv.Itoa(n), width), nil
}
