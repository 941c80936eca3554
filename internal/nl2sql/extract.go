package nl2sql

import (
	"math"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/salesql/salesql/internal/schema"
)

var (
	rankWords        = []string{"top", "bottom", "best", "worst"}
	superlativeWords = []string{"highest", "lowest", "most", "least", "largest", "smallest", "biggest", "greatest", "fewest", "leading"}
	ascendingWords   = []string{"bottom", "worst", "lowest", "least", "smallest", "fewest"}
	compareWords     = []string{"compare", "compared", "comparing", "comparison", "versus", "vs", "against", "difference between"}
	trendWords       = []string{
		"trend", "trends", "over time", "time series", "timeline", "evolution", "growth",
		"daily", "monthly", "quarterly", "yearly", "annual", "annually",
		"by day", "per day", "each day", "by date", "per date",
		"by month", "per month", "each month", "month over month",
		"by quarter", "per quarter", "each quarter", "quarter over quarter",
		"by year", "per year", "each year", "year over year",
	}
	groupWords = []string{
		"by", "per", "each", "across", "breakdown", "break down", "split", "distribution", "grouped",
		"summary", "summarize", "analysis", "overview", "performance", "share",
		"compare", "compared", "comparison", "versus", "vs",
	}
	summaryWords  = []string{"summary", "summarize", "analysis", "overview", "performance", "comparison", "compare", "compared"}
	distinctWords = []string{"distinct", "unique", "different", "available", "which", "list"}
	averageWords  = []string{"average", "avg", "mean"}
	countWords    = []string{"how many", "number of", "count"}
	countNouns    = []string{"orders", "order count", "transactions", "purchases", "sales count"}
	frequentWords = []string{"common", "popular", "frequent", "frequently", "often"}
	totalWords    = []string{"total", "sum", "how much", "overall", "altogether", "combined"}
	maxWords      = []string{"maximum", "max", "highest", "largest", "biggest"}
	minWords      = []string{"minimum", "min", "lowest", "smallest"}
	listingWords  = []string{"rows", "records", "transactions", "orders", "data", "entries", "details", "list", "dataset", "table", "sample"}
	showWords     = []string{"show", "list", "display", "preview", "give", "see", "view", "get", "print"}
	sampleNouns   = []string{"data", "rows", "records", "sample", "orders", "transactions", "entries", "table", "dataset"}
	countFillers  = []string{"the", "unique", "distinct", "different", "individual", "total", "of", "all"}
)

var (
	numberWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
		"eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
		"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
		"nineteen": 19, "twenty": 20, "dozen": 12,
	}
	monthAbbreviations = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6, "jul": 7,
		"aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
	}
	monthPrepositions = map[string]bool{
		"in": true, "of": true, "for": true, "during": true, "between": true, "and": true,
		"to": true, "from": true, "since": true, "until": true, "through": true, "vs": true,
		"versus": true, "compare": true, "before": true, "after": true,
	}
	guardedValues = map[string]bool{"new": true}
	customerNouns = map[string]bool{
		"customer": true, "customers": true, "buyer": true, "buyers": true, "client": true, "clients": true,
		"type": true, "types": true, "segment": true, "segments": true,
	}
	linkingVerbs    = map[string]bool{"is": true, "are": true, "was": true, "were": true}
	ordinalQuarters = map[string]int{
		"first": 1, "1st": 1, "second": 2, "2nd": 2, "third": 3, "3rd": 3, "fourth": 4, "4th": 4,
	}
	quarterToken = regexp.MustCompile(`^q([1-4])$`)
	yearToken    = regexp.MustCompile(`^(19|20)\d{2}$`)
	isoDateToken = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	digitsToken  = regexp.MustCompile(`^\d+$`)
	timeUnits    = map[string]Granularity{
		"month": GranularityMonth, "months": GranularityMonth,
		"quarter": GranularityQuarter, "quarters": GranularityQuarter,
		"day": GranularityDay, "days": GranularityDay, "date": GranularityDay,
	}
)

// mention is a column alias found in a question, as a token span.
type mention struct {
	column string
	role   schema.Role
	start  int
	end    int
}

// findMentions locates column aliases. A mention nested inside a longer one
// ("customer" inside "customer type") is dropped.
func findMentions(q Question, desc *schema.Descriptor, roles ...schema.Role) []mention {
	var all []mention
	for _, column := range desc.Columns() {
		phrases := append([]string{column.Name}, column.Aliases...)
		seen := map[int]int{}
		for _, phrase := range phrases {
			size := len(strings.Fields(Normalize(phrase)))
			for _, pos := range q.positions(phrase) {
				if prev, ok := seen[pos]; ok && prev >= size {
					continue
				}
				seen[pos] = size
				all = append(all, mention{column: column.Name, role: column.Role, start: pos, end: pos + size})
			}
		}
	}

	var kept []mention
	for i, m := range all {
		nested := false
		for j, other := range all {
			if i == j {
				continue
			}
			if other.start <= m.start && other.end >= m.end && other.end-other.start > m.end-m.start {
				nested = true
				break
			}
			if other.column == m.column && other.start == m.start && other.end == m.end && j < i {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		if len(roles) > 0 && !slices.Contains(roles, m.role) {
			continue
		}
		kept = append(kept, m)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

func hasMention(q Question, desc *schema.Descriptor, roles ...schema.Role) bool {
	return len(findMentions(q, desc, roles...)) > 0
}

// extractMeasure picks the first mentioned measure, preferring any measure
// other than the default since the default alias ("sales") is often generic.
func extractMeasure(q Question, desc *schema.Descriptor, p *Params) {
	measures := findMentions(q, desc, schema.RoleMeasure)
	if len(measures) == 0 {
		return
	}
	def, _ := desc.DefaultMeasure()
	for _, m := range measures {
		if m.column != def.Name {
			p.Measure = m.column
			return
		}
	}
	p.Measure = measures[0].column
}

func extractAggregate(q Question, desc *schema.Descriptor, p *Params) {
	target := countTarget(q, desc)
	switch {
	case q.HasAny(averageWords...):
		p.Aggregate = AggregateAvg
	case target != "":
		p.Aggregate = AggregateCountDistinct
		p.CountColumn = target
	case q.HasAny(countWords...):
		p.Aggregate = AggregateCount
	case q.HasAny(countNouns...) && !hasMention(q, desc, schema.RoleMeasure):
		p.Aggregate = AggregateCount
	case q.HasAny(maxWords...):
		p.Aggregate = AggregateMax
	case q.HasAny(minWords...):
		p.Aggregate = AggregateMin
	}
}

// extractRankAggregate is extractAggregate for ranking questions, where
// superlatives decide the ordering rather than the aggregate.
func extractRankAggregate(q Question, desc *schema.Descriptor, p *Params) {
	if q.HasAny(averageWords...) {
		p.Aggregate = AggregateAvg
		return
	}
	if hasMention(q, desc, schema.RoleMeasure) {
		return
	}
	if target := countTarget(q, desc); target != "" {
		p.Aggregate = AggregateCountDistinct
		p.CountColumn = target
		return
	}
	entity := firstEntity(q, desc)
	for _, m := range findMentions(q, desc, schema.RoleIdentifier) {
		if m.column != entity {
			p.Aggregate = AggregateCountDistinct
			p.CountColumn = m.column
			return
		}
	}
	if q.HasAny(countWords...) || q.HasAny(countNouns...) || q.HasAny(frequentWords...) {
		p.Aggregate = AggregateCount
	}
}

// countTarget returns the column counted in "how many customers", if any.
// Fillers and dimension values between the count phrase and the noun are
// skipped, so "how many VIP customers" counts customers.
func countTarget(q Question, desc *schema.Descriptor) string {
	mentions := findMentions(q, desc, schema.RoleDimension, schema.RoleIdentifier)
	spans := valueSpans(q, desc)
	for _, phrase := range countWords {
		size := len(strings.Fields(phrase))
		for _, pos := range q.positions(phrase) {
			i := pos + size
			for {
				if slices.Contains(countFillers, q.token(i)) {
					i++
					continue
				}
				if end, ok := valueSpanAt(spans, i); ok {
					i = end
					continue
				}
				break
			}
			for _, m := range mentions {
				if m.start == i {
					return m.column
				}
			}
		}
	}
	return ""
}

func firstEntity(q Question, desc *schema.Descriptor) string {
	mentions := findMentions(q, desc, schema.RoleDimension, schema.RoleIdentifier)
	if len(mentions) == 0 {
		return ""
	}
	return mentions[0].column
}

// extractEntity sets the ranked entity, falling back to a time bucket
// ("best month") when no dimension is named.
func extractEntity(q Question, desc *schema.Descriptor, p *Params) {
	if entity := firstEntity(q, desc); entity != "" {
		p.Dimension = entity
		return
	}
	for _, tok := range q.tokens {
		if granularity, ok := timeUnits[tok]; ok {
			p.Granularity = granularity
			return
		}
	}
}

func extractRank(q Question, _ *schema.Descriptor, p *Params) {
	p.Order = OrderDesc
	if q.HasAny(ascendingWords...) {
		p.Order = OrderAsc
	}
	if n, ok := rankCount(q); ok {
		p.Limit = n
		return
	}
	if !q.HasAny(rankWords...) {
		p.Limit = 1
	}
}

func rankCount(q Question) (int, bool) {
	words := append(append([]string(nil), rankWords...), superlativeWords...)
	for _, word := range words {
		for _, pos := range q.positions(word) {
			if n, ok := parseCount(q.token(pos + 1)); ok {
				return n, true
			}
			before := q.token(pos - 1)
			if n, ok := parseCount(before); ok && q.token(pos-2) != "quarter" && !yearToken.MatchString(before) {
				return n, true
			}
		}
	}
	return 0, false
}

func parseCount(tok string) (int, bool) {
	if n, ok := numberWords[tok]; ok {
		return n, true
	}
	if !digitsToken.MatchString(tok) {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		// Too large for an int; the translator clamps it to the list limit.
		return math.MaxInt, true
	}
	if n < 1 {
		return 0, false
	}
	return n, true
}

// extractGroupBy picks the grouping dimension: the first one named after a
// grouping word, else the first dimension named at all.
func extractGroupBy(q Question, desc *schema.Descriptor, p *Params) {
	var candidates []mention
	for _, m := range findMentions(q, desc, schema.RoleDimension, schema.RoleIdentifier) {
		if m.column != p.CountColumn {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return
	}
	chosen := -1
	if anchor := q.firstPosition(groupWords...); anchor >= 0 {
		for i, m := range candidates {
			if m.start > anchor {
				chosen = i
				break
			}
		}
	}
	if chosen == -1 {
		for i, m := range candidates {
			if m.role == schema.RoleDimension {
				chosen = i
				break
			}
		}
	}
	if chosen == -1 {
		chosen = 0
	}
	p.Dimension = candidates[chosen].column
	for _, m := range candidates[chosen+1:] {
		if m.column != p.Dimension && m.role == schema.RoleDimension {
			p.SplitBy = m.column
			return
		}
	}
}

func extractSplit(q Question, desc *schema.Descriptor, p *Params) {
	for _, m := range findMentions(q, desc, schema.RoleDimension) {
		if m.column != p.CountColumn {
			p.SplitBy = m.column
			return
		}
	}
}

// extractSummary asks for an order count next to the measure on
// "summary" style breakdowns.
func extractSummary(q Question, _ *schema.Descriptor, p *Params) {
	p.WithCount = q.HasAny(summaryWords...)
}

func extractDistinct(q Question, desc *schema.Descriptor, p *Params) {
	p.Dimension = firstEntity(q, desc)
}

func extractGranularity(q Question, _ *schema.Descriptor, p *Params) {
	switch {
	case q.HasAny("daily", "by day", "per day", "each day", "by date", "per date"):
		p.Granularity = GranularityDay
	case q.HasAny("quarterly", "by quarter", "per quarter", "each quarter", "quarter over quarter"):
		p.Granularity = GranularityQuarter
	case q.HasAny("yearly", "annual", "annually", "by year", "per year", "each year", "year over year"):
		p.Granularity = GranularityYear
	case q.HasAny("monthly", "by month", "per month", "each month", "month over month"):
		p.Granularity = GranularityMonth
	}
}

// extractValues collects known dimension values, in canonical casing.
func extractValues(q Question, desc *schema.Descriptor, p *Params) {
	p.Filters = mentionedValues(q, desc)
}

// valueSpan is a known dimension value found in a question, as a token span.
type valueSpan struct {
	column string
	value  string
	start  int
	end    int
}

// valueSpans finds dimension values. Values that are also everyday words
// ("new") only count next to a customer noun or beside another value of the
// same column, so "what's new in sales" adds no filter while "new customers"
// and "new vs returning" do.
func valueSpans(q Question, desc *schema.Descriptor) []valueSpan {
	var spans []valueSpan
	for _, column := range desc.Dimensions() {
		sibling := false
		for _, value := range column.Values {
			if !guardedValues[Normalize(value)] && q.Has(value) {
				sibling = true
				break
			}
		}
		for _, value := range column.Values {
			size := len(strings.Fields(Normalize(value)))
			for _, pos := range q.positions(value) {
				if guardedValues[Normalize(value)] && !sibling && !nearCustomerNoun(q, pos, pos+size) {
					continue
				}
				spans = append(spans, valueSpan{column: column.Name, value: value, start: pos, end: pos + size})
			}
		}
	}
	return spans
}

func nearCustomerNoun(q Question, start, end int) bool {
	if customerNouns[q.token(end)] || customerNouns[q.token(start-1)] {
		return true
	}
	return linkingVerbs[q.token(start-1)] && customerNouns[q.token(start-2)]
}

func valueSpanAt(spans []valueSpan, pos int) (int, bool) {
	for _, span := range spans {
		if span.start == pos {
			return span.end, true
		}
	}
	return 0, false
}

func mentionedValues(q Question, desc *schema.Descriptor) []Filter {
	var filters []Filter
	for _, span := range valueSpans(q, desc) {
		i := slices.IndexFunc(filters, func(f Filter) bool { return f.Column == span.column })
		if i == -1 {
			filters = append(filters, Filter{Column: span.column})
			i = len(filters) - 1
		}
		if !slices.Contains(filters[i].Values, span.value) {
			filters[i].Values = append(filters[i].Values, span.value)
		}
	}
	return filters
}

func extractPeriod(q Question, _ *schema.Descriptor, p *Params) {
	applyDates(q, p)
	if from, to, ok := monthRange(q); ok {
		p.MonthFrom, p.MonthTo = from, to
	} else {
		p.Months = months(q)
	}
	p.Quarters = quarters(q)
	p.Years = years(q)
}

// extractComparison splits the question into the two sides being compared.
// Periods win over dimension values; whatever is not compared stays a filter.
func extractComparison(q Question, desc *schema.Descriptor, p *Params) {
	ms, qs, ys := months(q), quarters(q), years(q)
	switch {
	case len(ms) >= 2:
		p.Periods = periods(PeriodMonth, ms)
		p.Quarters, p.Years = qs, ys
	case len(qs) >= 2:
		p.Periods = periods(PeriodQuarter, qs)
		p.Months, p.Years = ms, ys
	case len(ys) >= 2:
		p.Periods = periods(PeriodYear, ys)
		p.Months, p.Quarters = ms, qs
	default:
		extractPeriod(q, desc, p)
		for _, filter := range p.Filters {
			if len(filter.Values) >= 2 {
				p.Dimension = filter.Column
				return
			}
		}
	}
}

func comparable(q Question, desc *schema.Descriptor) bool {
	if len(months(q)) >= 2 || len(quarters(q)) >= 2 || len(years(q)) >= 2 {
		return true
	}
	for _, filter := range mentionedValues(q, desc) {
		if len(filter.Values) >= 2 {
			return true
		}
	}
	return false
}

func periods(kind PeriodKind, values []int) []Period {
	out := make([]Period, 0, len(values))
	for _, value := range values {
		out = append(out, Period{Kind: kind, Value: value})
	}
	return out
}

func hasPeriod(q Question) bool {
	return len(isoDates(q)) > 0 || len(months(q)) > 0 || len(quarters(q)) > 0 || len(years(q)) > 0
}

type monthMention struct {
	month int
	pos   int
}

// monthMentions finds month names. Abbreviations and "may" only count after
// a preposition so "may" the verb is not read as a month.
func monthMentions(q Question) []monthMention {
	var out []monthMention
	seen := map[int]bool{}
	for i, tok := range q.tokens {
		month := 0
		if m, ok := fullMonth(tok); ok && tok != "may" {
			month = m
		} else if m, ok := monthAbbreviations[tok]; ok && monthPrepositions[q.token(i-1)] {
			month = m
		}
		if month == 0 || seen[month] {
			continue
		}
		seen[month] = true
		out = append(out, monthMention{month: month, pos: i})
	}
	return out
}

func fullMonth(tok string) (int, bool) {
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()) == tok {
			return int(m), true
		}
	}
	return 0, false
}

func months(q Question) []int {
	var out []int
	for _, m := range monthMentions(q) {
		out = append(out, m.month)
	}
	return out
}

// monthRange recognizes "between march and june" and "from march to june".
func monthRange(q Question) (int, int, bool) {
	mentions := monthMentions(q)
	for i := 0; i+1 < len(mentions); i++ {
		a, b := mentions[i], mentions[i+1]
		if b.pos != a.pos+2 {
			continue
		}
		joiner := q.token(a.pos + 1)
		lead := q.token(a.pos - 1)
		ok := (joiner == "and" && lead == "between") ||
			((joiner == "to" || joiner == "through" || joiner == "until") && (lead == "from" || lead == "between"))
		if !ok {
			continue
		}
		from, to := a.month, b.month
		if from > to {
			from, to = to, from
		}
		return from, to, true
	}
	return 0, 0, false
}

func quarters(q Question) []int {
	var out []int
	add := func(n int) {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	for i, tok := range q.tokens {
		if m := quarterToken.FindStringSubmatch(tok); m != nil {
			n, _ := strconv.Atoi(m[1])
			add(n)
			continue
		}
		if n, ok := ordinalQuarters[tok]; ok && q.token(i+1) == "quarter" {
			add(n)
			continue
		}
		if tok == "quarter" {
			if n, err := strconv.Atoi(q.token(i + 1)); err == nil && n >= 1 && n <= 4 {
				add(n)
			}
		}
	}
	return out
}

func years(q Question) []int {
	var out []int
	for _, tok := range q.tokens {
		if !yearToken.MatchString(tok) {
			continue
		}
		n, _ := strconv.Atoi(tok)
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

type dateMention struct {
	value string
	pos   int
}

func isoDates(q Question) []dateMention {
	var out []dateMention
	for i, tok := range q.tokens {
		if !isoDateToken.MatchString(tok) {
			continue
		}
		if _, err := time.Parse(time.DateOnly, tok); err != nil {
			continue
		}
		out = append(out, dateMention{value: tok, pos: i})
	}
	return out
}

func applyDates(q Question, p *Params) {
	dates := isoDates(q)
	switch len(dates) {
	case 0:
		return
	case 1:
		switch q.token(dates[0].pos - 1) {
		case "since", "after", "from":
			p.DateFrom = dates[0].value
		case "before", "until", "to":
			p.DateTo = dates[0].value
		default:
			p.DateFrom, p.DateTo = dates[0].value, dates[0].value
		}
	default:
		values := make([]string, 0, len(dates))
		for _, d := range dates {
			values = append(values, d.value)
		}
		sort.Strings(values)
		p.DateFrom, p.DateTo = values[0], values[len(values)-1]
	}
}
