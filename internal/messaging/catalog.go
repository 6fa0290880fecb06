// Package messaging renders localized player notifications. Catalogs are YAML
// files, one per locale, with "{name}" placeholders substituted from the
// notification parameters.
package messaging

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback locale; every catalog set must define it.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embedded embed.FS

// Params are the named substitutions of one notification.
type Params map[string]any

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds the message templates of every loaded locale.
type Catalog struct {
	locales  []string // base locale first
	tags     []language.Tag
	messages map[string]map[string]string
	matcher  language.Matcher
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embedded)
}

// LoadDir loads locales/*.yaml from dir on disk.
func LoadDir(dir string) (*Catalog, error) {
	return LoadFromFS(os.DirFS(dir))
}

// LoadFromFS loads every locales/*.yaml file in fsys.
//
// Postcondition: returns an error if the base locale is missing, a file's
// locale does not match its file name, or a locale is defined twice.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("no locale catalogs found")
	}
	sort.Strings(paths)

	c := &Catalog{messages: make(map[string]map[string]string, len(paths))}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := c.add(p, file); err != nil {
			return nil, err
		}
	}
	if _, ok := c.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}

	c.locales = make([]string, 0, len(c.messages))
	c.locales = append(c.locales, BaseLocale)
	for loc := range c.messages {
		if loc != BaseLocale {
			c.locales = append(c.locales, loc)
		}
	}
	sort.Strings(c.locales[1:])
	c.tags = make([]language.Tag, len(c.locales))
	for i, loc := range c.locales {
		c.tags[i] = language.Make(loc)
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func (c *Catalog) add(p string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); locale != want {
		return fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, want)
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("catalog %s: %w", p, err)
	}
	if _, dup := c.messages[locale]; dup {
		return fmt.Errorf("catalog %s: locale %q already defined", p, locale)
	}
	msgs := make(map[string]string, len(file.Messages))
	for k, v := range file.Messages {
		k = strings.TrimSpace(k)
		if k == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		msgs[k] = v
	}
	c.messages[locale] = msgs
	return nil
}

// Locales returns the loaded locales, base locale first.
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.locales))
	copy(out, c.locales)
	return out
}

// Missing returns the keys of Keys() that the base locale does not define.
func (c *Catalog) Missing() []string {
	var out []string
	for _, k := range Keys() {
		if _, ok := c.messages[BaseLocale][k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Match resolves a requested locale to the closest loaded one. Unparseable or
// unsupported requests resolve to the base locale.
func (c *Catalog) Match(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return BaseLocale
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No {
		return BaseLocale
	}
	return c.locales[idx]
}

// Render formats key for locale with params substituted. Numbers are
// formatted with the locale's separators. A key missing from the matched
// locale falls back to the base locale; a key missing everywhere renders as
// the key itself.
func (c *Catalog) Render(locale, key string, params Params) string {
	loc := c.Match(locale)
	tmpl, ok := c.messages[loc][key]
	if !ok {
		if tmpl, ok = c.messages[BaseLocale][key]; !ok {
			return key
		}
		loc = BaseLocale
	}
	if len(params) == 0 {
		return tmpl
	}

	p := message.NewPrinter(language.Make(loc))
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", format(p, params[name]))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func format(p *message.Printer, v any) string {
	switch n := v.(type) {
	case float64:
		return p.Sprintf("%.1f", n)
	case float32:
		return p.Sprintf("%.1f", n)
	case int:
		return p.Sprintf("%d", n)
	case int64:
		return p.Sprintf("%d", n)
	case fmt.Stringer:
		return n.String()
	default:
		return fmt.Sprint(v)
	}
}
