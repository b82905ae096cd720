package anonymize

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

type fakerAlias struct {
	method   string
	defaults []interface{}
}

// aliases maps the method names used in profile files onto gofakeit.
var aliases = map[string]fakerAlias{
	"safeemail":        {method: "Email"},
	"freeemail":        {method: "Email"},
	"companyemail":     {method: "Email"},
	"phonenumber":      {method: "Phone"},
	"e164phonenumber":  {method: "Phone"},
	"postcode":         {method: "Zip"},
	"zipcode":          {method: "Zip"},
	"streetaddress":    {method: "Street"},
	"companyname":      {method: "Company"},
	"ipv4":             {method: "IPv4Address"},
	"ipv6":             {method: "IPv6Address"},
	"text":             {method: "Paragraph", defaults: []interface{}{1, 3, 12, " "}},
	"paragraph":        {method: "Paragraph", defaults: []interface{}{1, 3, 12, " "}},
	"sentence":         {method: "Sentence", defaults: []interface{}{8}},
	"numberbetween":    {method: "Number", defaults: []interface{}{0, 2147483647}},
	"randomnumber":     {method: "Number", defaults: []interface{}{0, 999999}},
	"boolean":          {method: "Bool"},
	"creditcardnumber": {method: "CreditCardNumber"},
	"domainname":       {method: "DomainName"},
	"jobtitle":         {method: "JobTitle"},
	"useragent":        {method: "UserAgent"},
	"macaddress":       {method: "MacAddress"},
	"uuid":             {method: "UUID"},
}

// GofakeitGenerator resolves method names against a gofakeit Faker.
type GofakeitGenerator struct {
	mu      sync.Mutex
	faker   *gofakeit.Faker
	methods map[string]reflect.Value
}

// NewGofakeitGenerator creates a generator. A zero seed picks a random one.
func NewGofakeitGenerator(seed uint64) *GofakeitGenerator {
	faker := gofakeit.New(seed)
	g := &GofakeitGenerator{
		faker:   faker,
		methods: make(map[string]reflect.Value),
	}

	v := reflect.ValueOf(faker)
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		g.methods[strings.ToLower(t.Method(i).Name)] = v.Method(i)
	}
	return g
}

// Generate calls the named generator method.
func (g *GofakeitGenerator) Generate(method string, args []interface{}) (interface{}, error) {
	key := strings.ToLower(method)
	target := key
	var defaults []interface{}
	if alias, ok := aliases[key]; ok {
		target = strings.ToLower(alias.method)
		defaults = alias.defaults
	}

	fn, ok := g.methods[target]
	if !ok {
		return nil, fmt.Errorf("unsupported faker method %q", method)
	}

	if len(args) == 0 && len(defaults) > 0 {
		n := fn.Type().NumIn()
		if len(defaults) > n {
			defaults = defaults[:n]
		}
		args = defaults
	}

	// gofakeit's source is not safe for concurrent use
	g.mu.Lock()
	defer g.mu.Unlock()
	return callMethod(fn, method, args)
}

// Methods lists the method names the generator understands, aliases included.
func (g *GofakeitGenerator) Methods() []string {
	names := make([]string, 0, len(g.methods)+len(aliases))
	for name := range g.methods {
		names = append(names, name)
	}
	for name := range aliases {
		names = append(names, name)
	}
	return names
}
