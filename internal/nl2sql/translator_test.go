package nl2sql

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesql/salesql/internal/schema"
)

const allColumns = "order_id, customer_id, order_date, product, category, region, quantity, unit_price, total_sales, cost_price, profit, payment_method, customer_type, discount"

func newTestTranslator(t *testing.T, opts ...Option) *Translator {
	t.Helper()
	translator, err := New(schema.Sales(), DefaultBank(), opts...)
	require.NoError(t, err)
	return translator
}

func TestTranslateScenarios(t *testing.T) {
	translator := newTestTranslator(t)

	tests := []struct {
		question string
		rule     string
		shape    Shape
		sql      string
	}{
		{
			question: "What were total sales in March?",
			rule:     RuleTotal,
			shape:    ShapeScalar,
			sql:      "SELECT SUM(total_sales) AS total_sales FROM sales WHERE month(CAST(order_date AS DATE)) = 3",
		},
		{
			question: "Show sales by category",
			rule:     RuleBreakdown,
			shape:    ShapeCategoricalAggregate,
			sql:      "SELECT category, SUM(total_sales) AS total_sales FROM sales GROUP BY category ORDER BY total_sales DESC",
		},
		{
			question: "Top 5 products by revenue",
			rule:     RuleTopN,
			shape:    ShapeTable,
			sql:      "SELECT product, SUM(total_sales) AS total_sales FROM sales GROUP BY product ORDER BY total_sales DESC LIMIT 5",
		},
		{
			question: "Compare sales between Q1 and Q2",
			rule:     RuleComparison,
			shape:    ShapeTable,
			sql: "SELECT CASE WHEN quarter(CAST(order_date AS DATE)) = 1 THEN 'Q1' WHEN quarter(CAST(order_date AS DATE)) = 2 THEN 'Q2' END AS period, " +
				"SUM(total_sales) AS total_sales FROM sales WHERE quarter(CAST(order_date AS DATE)) IN (1, 2) " +
				"GROUP BY period ORDER BY MIN(quarter(CAST(order_date AS DATE)))",
		},
		{
			question: "Show the monthly sales trend",
			rule:     RuleTrend,
			shape:    ShapeTimeSeries,
			sql: "SELECT strftime(CAST(order_date AS DATE), '%Y-%m') AS month, SUM(total_sales) AS total_sales FROM sales " +
				"GROUP BY strftime(CAST(order_date AS DATE), '%Y-%m') ORDER BY month",
		},
		{
			question: "Which payment methods are available?",
			rule:     RuleDistinctValues,
			shape:    ShapeTable,
			sql:      "SELECT DISTINCT payment_method FROM sales ORDER BY payment_method LIMIT 100",
		},
		{
			question: "What is the average discount?",
			rule:     RuleAverage,
			shape:    ShapeScalar,
			sql:      "SELECT AVG(discount) AS avg_discount FROM sales",
		},
		{
			question: "How many orders were placed in March?",
			rule:     RuleCount,
			shape:    ShapeScalar,
			sql:      "SELECT COUNT(*) AS order_count FROM sales WHERE month(CAST(order_date AS DATE)) = 3",
		},
		{
			question: "Show orders from Europe",
			rule:     RuleFilterCategory,
			shape:    ShapeTable,
			sql:      "SELECT " + allColumns + " FROM sales WHERE region = 'Europe' ORDER BY order_date LIMIT 100",
		},
		{
			question: "Show transactions between 2023-03-01 and 2023-03-31",
			rule:     RuleFilterDateRange,
			shape:    ShapeTable,
			sql:      "SELECT " + allColumns + " FROM sales WHERE CAST(order_date AS DATE) BETWEEN DATE '2023-03-01' AND DATE '2023-03-31' ORDER BY order_date LIMIT 100",
		},
		{
			question: "Show me a sample of the data",
			rule:     RuleSampleRows,
			shape:    ShapeTable,
			sql:      "SELECT " + allColumns + " FROM sales LIMIT 10",
		},
	}
	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			result := translator.Translate(tc.question)
			assert.Equal(t, tc.rule, result.RuleID)
			assert.Equal(t, tc.shape, result.Shape)
			assert.Equal(t, tc.sql, result.SQL)
			assert.True(t, result.Recognized())
			assert.NotEmpty(t, result.Explanation)
			assert.Empty(t, result.Suggestions)
		})
	}
}

func TestTranslateUnrecognized(t *testing.T) {
	translator := newTestTranslator(t)

	for _, question := range []string{"asdkj random text", "", "   ", "?!?", "hello there"} {
		result := translator.Translate(question)
		assert.Equal(t, ShapeUnrecognized, result.Shape, question)
		assert.Equal(t, RuleFallback, result.RuleID, question)
		assert.Empty(t, result.SQL, question)
		assert.False(t, result.Recognized(), question)
		assert.NotEmpty(t, result.Explanation, question)
		assert.Len(t, result.Suggestions, DefaultBank().Len()-1, question)
	}
}

func TestTranslateRankingAndAggregates(t *testing.T) {
	translator := newTestTranslator(t)

	tests := []struct {
		question string
		rule     string
		sql      string
	}{
		{
			question: "top 3 categories by profit",
			rule:     RuleTopN,
			sql:      "SELECT category, SUM(profit) AS total_profit FROM sales GROUP BY category ORDER BY total_profit DESC LIMIT 3",
		},
		{
			question: "Bottom 3 regions by profit",
			rule:     RuleTopN,
			sql:      "SELECT region, SUM(profit) AS total_profit FROM sales GROUP BY region ORDER BY total_profit ASC LIMIT 3",
		},
		{
			question: "Top five customers by profit",
			rule:     RuleTopN,
			sql:      "SELECT customer_id, SUM(profit) AS total_profit FROM sales GROUP BY customer_id ORDER BY total_profit DESC LIMIT 5",
		},
		{
			question: "Top products",
			rule:     RuleTopN,
			sql:      "SELECT product, SUM(total_sales) AS total_sales FROM sales GROUP BY product ORDER BY total_sales DESC LIMIT 5",
		},
		{
			question: "Which region has the highest profit?",
			rule:     RuleTopN,
			sql:      "SELECT region, SUM(profit) AS total_profit FROM sales GROUP BY region ORDER BY total_profit DESC LIMIT 1",
		},
		{
			question: "Which customers placed the most orders?",
			rule:     RuleTopN,
			sql:      "SELECT customer_id, COUNT(*) AS order_count FROM sales GROUP BY customer_id ORDER BY order_count DESC LIMIT 1",
		},
		{
			question: "Which region has the most customers?",
			rule:     RuleTopN,
			sql:      "SELECT region, COUNT(DISTINCT customer_id) AS customer_count FROM sales GROUP BY region ORDER BY customer_count DESC LIMIT 1",
		},
		{
			question: "Which month had the highest sales?",
			rule:     RuleTopN,
			sql: "SELECT strftime(CAST(order_date AS DATE), '%Y-%m') AS month, SUM(total_sales) AS total_sales FROM sales " +
				"GROUP BY strftime(CAST(order_date AS DATE), '%Y-%m') ORDER BY total_sales DESC LIMIT 1",
		},
		{
			question: "Top 5 products by revenue in Europe",
			rule:     RuleTopN,
			sql:      "SELECT product, SUM(total_sales) AS total_sales FROM sales WHERE region = 'Europe' GROUP BY product ORDER BY total_sales DESC LIMIT 5",
		},
		{
			question: "Average unit price per category",
			rule:     RuleBreakdown,
			sql:      "SELECT category, AVG(unit_price) AS avg_unit_price FROM sales GROUP BY category ORDER BY avg_unit_price DESC",
		},
		{
			question: "Total profit by region and category",
			rule:     RuleBreakdown,
			sql:      "SELECT region, category, SUM(profit) AS total_profit FROM sales GROUP BY region, category ORDER BY total_profit DESC",
		},
		{
			question: "Payment methods summary",
			rule:     RuleBreakdown,
			sql:      "SELECT payment_method, SUM(total_sales) AS total_sales, COUNT(*) AS order_count FROM sales GROUP BY payment_method ORDER BY total_sales DESC",
		},
		{
			question: "How many customers by region?",
			rule:     RuleBreakdown,
			sql:      "SELECT region, COUNT(DISTINCT customer_id) AS customer_count FROM sales GROUP BY region ORDER BY customer_count DESC",
		},
		{
			question: "How many customers bought Laptop Pro?",
			rule:     RuleCount,
			sql:      "SELECT COUNT(DISTINCT customer_id) AS customer_count FROM sales WHERE product = 'Laptop Pro'",
		},
		{
			question: "How many VIP customers?",
			rule:     RuleCount,
			sql:      "SELECT COUNT(DISTINCT customer_id) AS customer_count FROM sales WHERE customer_type = 'VIP'",
		},
		{
			question: "How many customers are VIP?",
			rule:     RuleCount,
			sql:      "SELECT COUNT(DISTINCT customer_id) AS customer_count FROM sales WHERE customer_type = 'VIP'",
		},
		{
			question: "Number of new customers in March",
			rule:     RuleCount,
			sql:      "SELECT COUNT(DISTINCT customer_id) AS customer_count FROM sales WHERE customer_type = 'New' AND month(CAST(order_date AS DATE)) = 3",
		},
		{
			question: "How many orders in Europe?",
			rule:     RuleCount,
			sql:      "SELECT COUNT(*) AS order_count FROM sales WHERE region = 'Europe'",
		},
		{
			question: "Top 5000 products",
			rule:     RuleTopN,
			sql:      "SELECT product, SUM(total_sales) AS total_sales FROM sales GROUP BY product ORDER BY total_sales DESC LIMIT 100",
		},
		{
			question: "What is the highest unit price?",
			rule:     RuleTotal,
			sql:      "SELECT MAX(unit_price) AS max_unit_price FROM sales",
		},
		{
			question: "Show sales between March and May",
			rule:     RuleTotal,
			sql:      "SELECT SUM(total_sales) AS total_sales FROM sales WHERE month(CAST(order_date AS DATE)) BETWEEN 3 AND 5",
		},
		{
			question: "Compare revenue in Europe versus Asia Pacific",
			rule:     RuleComparison,
			sql:      "SELECT region, SUM(total_sales) AS total_sales FROM sales WHERE region IN ('Europe', 'Asia Pacific') GROUP BY region ORDER BY total_sales DESC",
		},
		{
			question: "Compare profit in January vs February",
			rule:     RuleComparison,
			sql: "SELECT CASE WHEN month(CAST(order_date AS DATE)) = 1 THEN 'January' WHEN month(CAST(order_date AS DATE)) = 2 THEN 'February' END AS period, " +
				"SUM(profit) AS total_profit FROM sales WHERE month(CAST(order_date AS DATE)) IN (1, 2) " +
				"GROUP BY period ORDER BY MIN(month(CAST(order_date AS DATE)))",
		},
	}
	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			result := translator.Translate(tc.question)
			assert.Equal(t, tc.rule, result.RuleID)
			assert.Equal(t, tc.sql, result.SQL)
		})
	}
}

func TestAmbiguousPhrasingPrecedence(t *testing.T) {
	desc := schema.Sales()
	translator := newTestTranslator(t)

	q := NewQuestion("top 3 categories by profit")
	require.True(t, matchTopN(q, desc))
	require.True(t, matchBreakdown(q, desc))
	assert.Equal(t, RuleTopN, translator.Translate(q.Raw).RuleID)

	q = NewQuestion("compare sales by region")
	require.False(t, matchComparison(q, desc))
	result := translator.Translate(q.Raw)
	assert.Equal(t, RuleBreakdown, result.RuleID)
	assert.Equal(t, "SELECT region, SUM(total_sales) AS total_sales, COUNT(*) AS order_count FROM sales GROUP BY region ORDER BY total_sales DESC", result.SQL)

	q = NewQuestion("monthly sales by region")
	require.True(t, matchBreakdown(q, desc))
	result = translator.Translate(q.Raw)
	assert.Equal(t, RuleTrend, result.RuleID)
	assert.Equal(t, "region", result.Params.SplitBy)

	q = NewQuestion("total sales by region")
	require.True(t, matchTotal(q, desc))
	assert.Equal(t, RuleBreakdown, translator.Translate(q.Raw).RuleID)
}

func TestEarlierRuleWinsOnOverlap(t *testing.T) {
	desc := schema.MustNew("t", []schema.Column{{Name: "x", Role: schema.RoleMeasure, Type: "DOUBLE"}})
	always := func(Question, *schema.Descriptor) bool { return true }
	build := func(s Scope, _ Params) Statement {
		return Statement{Fields: []string{s.Col("x")}, From: s.Table()}
	}
	bank := NewBank(
		Rule{ID: "first", Shape: ShapeTable, Match: always, Build: build},
		Rule{ID: "second", Shape: ShapeScalar, Match: always, Build: build},
		Rule{ID: "rest", Shape: ShapeUnrecognized, Match: always},
	)
	translator, err := New(desc, bank)
	require.NoError(t, err)

	result := translator.Translate("anything")
	assert.Equal(t, "first", result.RuleID)
	assert.Equal(t, ShapeTable, result.Shape)
	assert.Equal(t, "SELECT x FROM t", result.SQL)
	assert.Equal(t, []string{"x"}, result.Columns)
}

var identifierPattern = regexp.MustCompile(`[a-z_][a-z0-9_]*`)

func TestGeneratedSQLOnlyReferencesSchemaColumns(t *testing.T) {
	desc := schema.Sales()
	bank := DefaultBank()
	questions := []string{
		"What were total sales in March?",
		"Show sales by category",
		"Top 5 products by revenue",
		"Compare sales between Q1 and Q2",
		"Show the monthly sales trend",
		"Quarterly profit by region in 2023",
		"Daily quantity trend for Laptop Pro",
		"Which payment methods are available?",
		"What is the average discount in Europe?",
		"How many customers bought Laptop Pro?",
		"Number of orders per customer type",
		"Show orders from Europe paid by PayPal",
		"Show transactions since 2023-06-01",
		"Show me a sample of the data",
		"Customer type analysis",
		"Lowest 2 products by cost price in Q4",
		"Which customers bought Phone X in December?",
		"Compare 2022 and 2023 revenue",
	}
	for _, dialect := range []Dialect{DuckDB, SQLite} {
		translator, err := New(desc, bank, WithDialect(dialect))
		require.NoError(t, err)
		for _, question := range questions {
			t.Run(dialect.Name()+"/"+question, func(t *testing.T) {
				result := translator.Translate(question)
				require.True(t, result.Recognized())

				rule, ok := bank.Rule(result.RuleID)
				require.True(t, ok)
				assert.Equal(t, rule.Shape, result.Shape)

				for _, column := range result.Columns {
					_, ok := desc.Column(column)
					assert.True(t, ok, "unknown column %q", column)
				}
				for _, ident := range identifierPattern.FindAllString(strings.ToLower(result.SQL), -1) {
					if _, ok := desc.Column(ident); ok {
						assert.Contains(t, result.Columns, ident)
					}
				}
				assert.True(t, strings.HasPrefix(result.SQL, "SELECT "))
				assert.NotContains(t, result.SQL, ";")
			})
		}
	}
}

func TestTranslateIsDeterministic(t *testing.T) {
	translator := newTestTranslator(t)
	for _, example := range translator.Bank().Examples() {
		first := translator.Translate(example.Question)
		second := translator.Translate(example.Question)
		assert.Equal(t, first, second)
		assert.Equal(t, first.SQL, translator.Translate(strings.ToUpper(example.Question)+"  ").SQL)
	}
}

func TestBankExamplesSelectTheirOwnRule(t *testing.T) {
	translator := newTestTranslator(t)
	examples := translator.Bank().Examples()
	require.GreaterOrEqual(t, len(examples), 10)
	for _, example := range examples {
		result := translator.Translate(example.Question)
		assert.Equal(t, example.RuleID, result.RuleID, example.Question)
		assert.Equal(t, example.Shape, result.Shape, example.Question)
	}
}

func TestMonthAndMeasureRoundTrip(t *testing.T) {
	translator := newTestTranslator(t)
	measures := map[string]string{
		"sales":      "total_sales",
		"revenue":    "total_sales",
		"profit":     "profit",
		"quantity":   "quantity",
		"discount":   "discount",
		"unit price": "unit_price",
		"cost price": "cost_price",
	}
	monthExpr := regexp.MustCompile(`month\(CAST\(order_date AS DATE\)\) = (\d+)`)
	for phrase, column := range measures {
		for m := time.January; m <= time.December; m++ {
			question := fmt.Sprintf("What was the total %s in %s?", phrase, m)
			result := translator.Translate(question)

			require.Equal(t, RuleTotal, result.RuleID, question)
			assert.Equal(t, column, result.Params.Measure, question)
			assert.Equal(t, []int{int(m)}, result.Params.Months, question)
			assert.Contains(t, result.SQL, "SUM("+column+")", question)

			matches := monthExpr.FindAllStringSubmatch(result.SQL, -1)
			require.Len(t, matches, 1, question)
			assert.Equal(t, fmt.Sprint(int(m)), matches[0][1], question)
		}
	}
}

func TestSQLiteDialect(t *testing.T) {
	translator := newTestTranslator(t, WithDialect(SQLite), WithListLimit(25))

	result := translator.Translate("Show the monthly sales trend")
	assert.Equal(t, "SELECT strftime('%Y-%m', order_date) AS month, SUM(total_sales) AS total_sales FROM sales GROUP BY strftime('%Y-%m', order_date) ORDER BY month", result.SQL)

	result = translator.Translate("What were total sales in March?")
	assert.Equal(t, "SELECT SUM(total_sales) AS total_sales FROM sales WHERE CAST(strftime('%m', order_date) AS INTEGER) = 3", result.SQL)

	result = translator.Translate("Show transactions between 2023-03-01 and 2023-03-31")
	assert.Contains(t, result.SQL, "WHERE order_date BETWEEN '2023-03-01' AND '2023-03-31'")
	assert.True(t, strings.HasSuffix(result.SQL, "LIMIT 25"))

	result = translator.Translate("Quarterly profit by region in 2023")
	assert.Equal(t, RuleTrend, result.RuleID)
	assert.Contains(t, result.SQL, "AS quarter, region, SUM(profit) AS total_profit")
	assert.Contains(t, result.SQL, "WHERE CAST(strftime('%Y', order_date) AS INTEGER) = 2023")
	assert.True(t, strings.HasSuffix(result.SQL, "ORDER BY quarter, region"))
}

func TestValuesUseCanonicalCasing(t *testing.T) {
	translator := newTestTranslator(t)
	result := translator.Translate("show ORDERS from asia pacific paid with paypal")
	assert.Equal(t, RuleFilterCategory, result.RuleID)
	assert.Equal(t, []Filter{
		{Column: "region", Values: []string{"Asia Pacific"}},
		{Column: "payment_method", Values: []string{"PayPal"}},
	}, result.Params.Filters)
	assert.Contains(t, result.SQL, "WHERE region = 'Asia Pacific' AND payment_method = 'PayPal'")
}

func TestPeriodExtraction(t *testing.T) {
	tests := []struct {
		question string
		check    func(t *testing.T, p Params)
	}{
		{"orders in the first quarter of 2023", func(t *testing.T, p Params) {
			assert.Equal(t, []int{1}, p.Quarters)
			assert.Equal(t, []int{2023}, p.Years)
		}},
		{"orders from sep to nov", func(t *testing.T, p Params) {
			assert.Equal(t, 9, p.MonthFrom)
			assert.Equal(t, 11, p.MonthTo)
			assert.Empty(t, p.Months)
		}},
		{"orders since 2023-06-01", func(t *testing.T, p Params) {
			assert.Equal(t, "2023-06-01", p.DateFrom)
			assert.Empty(t, p.DateTo)
		}},
		{"orders on 2023-02-30", func(t *testing.T, p Params) {
			assert.Empty(t, p.DateFrom)
		}},
		{"you may see orders", func(t *testing.T, p Params) {
			assert.Empty(t, p.Months)
		}},
		{"orders in may", func(t *testing.T, p Params) {
			assert.Equal(t, []int{5}, p.Months)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			var p Params
			extractPeriod(NewQuestion(tc.question), schema.Sales(), &p)
			tc.check(t, p)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "what s the total sales", Normalize("  What's the TOTAL,   sales?? "))
	assert.Equal(t, "between 2023-03-01 and 2023-03-31", Normalize("between 2023-03-01 and 2023-03-31."))
	assert.Equal(t, "q1 q2 month over month", Normalize("Q1-Q2 month-over-month"))
	assert.Equal(t, "", Normalize("?!"))
}

func TestNewRejectsBankThatDoesNotFitSchema(t *testing.T) {
	noDate := schema.MustNew("sales", []schema.Column{
		{Name: "region", Role: schema.RoleDimension, Type: "TEXT"},
		{Name: "amount", Role: schema.RoleMeasure, Type: "DOUBLE"},
	})
	_, err := New(noDate, DefaultBank())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Contains(t, err.Error(), `rule "trend" requires a date column`)

	wrongColumn := NewBank(
		Rule{
			ID: "broken", Example: "anything", Shape: ShapeScalar,
			Match: func(Question, *schema.Descriptor) bool { return true },
			Build: func(s Scope, _ Params) Statement {
				return Statement{Fields: []string{s.Col("missing")}, From: s.Table()}
			},
		},
		Rule{ID: RuleFallback, Shape: ShapeUnrecognized, Match: func(Question, *schema.Descriptor) bool { return true }},
	)
	_, err = New(schema.Sales(), wrongColumn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Contains(t, err.Error(), `unknown column "missing"`)

	_, err = New(schema.Sales(), NewBank(Rule{
		ID: "needs", Shape: ShapeScalar, Match: func(Question, *schema.Descriptor) bool { return true },
		Build:    func(s Scope, _ Params) Statement { return Statement{From: s.Table()} },
		Requires: []Requirement{{Column: "region", Role: schema.RoleMeasure}},
	}, Rule{ID: RuleFallback, Shape: ShapeUnrecognized, Match: func(Question, *schema.Descriptor) bool { return true }}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestValidateRejectsMalformedBanks(t *testing.T) {
	always := func(Question, *schema.Descriptor) bool { return true }
	build := func(s Scope, _ Params) Statement { return Statement{From: s.Table()} }
	fallback := Rule{ID: RuleFallback, Shape: ShapeUnrecognized, Match: always}

	tests := map[string]Bank{
		"empty":          NewBank(),
		"no fallback":    NewBank(Rule{ID: "a", Shape: ShapeTable, Match: always, Build: build}),
		"fallback first": NewBank(fallback, Rule{ID: "a", Shape: ShapeTable, Match: always, Build: build}),
		"duplicate ids":  NewBank(Rule{ID: "a", Shape: ShapeTable, Match: always, Build: build}, Rule{ID: "a", Shape: ShapeTable, Match: always, Build: build}, fallback),
		"no predicate":   NewBank(Rule{ID: "a", Shape: ShapeTable, Build: build}, fallback),
		"no template":    NewBank(Rule{ID: "a", Shape: ShapeTable, Match: always}, fallback),
	}
	for name, bank := range tests {
		t.Run(name, func(t *testing.T) {
			err := bank.Validate(schema.Sales())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBank))
		})
	}
}

func TestDefaultBankShape(t *testing.T) {
	bank := DefaultBank()
	require.NoError(t, bank.Validate(schema.Sales()))

	var ids []string
	for _, rule := range bank.Rules() {
		ids = append(ids, rule.ID)
	}
	assert.Equal(t, []string{
		RuleTopN, RuleComparison, RuleTrend, RuleBreakdown, RuleDistinctValues, RuleAverage,
		RuleCount, RuleTotal, RuleFilterCategory, RuleFilterDateRange, RuleSampleRows, RuleFallback,
	}, ids)

	rules := bank.Rules()
	rules[0].ID = "mutated"
	assert.Equal(t, RuleTopN, bank.Rules()[0].ID)
	assert.False(t, slices.ContainsFunc(bank.Rules()[:bank.Len()-1], func(r Rule) bool { return r.Shape == ShapeUnrecognized }))
}

func TestTranslateConcurrently(t *testing.T) {
	translator := newTestTranslator(t)
	want := translator.Translate("Top 5 products by revenue")

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = translator.Translate("Top 5 products by revenue")
		}()
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName("SQLite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = DialectByName("")
	require.NoError(t, err)
	assert.Equal(t, "duckdb", d.Name())

	_, err = DialectByName("oracle")
	assert.Error(t, err)
}

func TestEverydayWordsAreNotDimensionValues(t *testing.T) {
	translator := newTestTranslator(t)

	result := translator.Translate("What's new in sales by region?")
	assert.Equal(t, RuleBreakdown, result.RuleID)
	assert.Equal(t, "SELECT region, SUM(total_sales) AS total_sales FROM sales GROUP BY region ORDER BY total_sales DESC", result.SQL)

	for _, question := range []string{
		"sales of new customers",
		"how many customers are new",
		"compare revenue of new vs returning customers",
	} {
		result := translator.Translate(question)
		assert.Contains(t, result.SQL, "'New'", question)
	}
}

func TestRankLimitIsClampedToListLimit(t *testing.T) {
	translator := newTestTranslator(t, WithListLimit(20))

	result := translator.Translate("top 5000 products")
	assert.Equal(t, RuleTopN, result.RuleID)
	assert.Equal(t, 20, result.Params.Limit)
	assert.True(t, strings.HasSuffix(result.SQL, "LIMIT 20"), result.SQL)

	result = translator.Translate("top 99999999999999999999 customers by profit")
	assert.True(t, strings.HasSuffix(result.SQL, "LIMIT 20"), result.SQL)

	result = translator.Translate("top 7 products")
	assert.True(t, strings.HasSuffix(result.SQL, "LIMIT 7"), result.SQL)
}
