package schema

const SalesTable = "sales"

var (
	Regions        = []string{"North America", "Europe", "Asia Pacific", "Latin America", "Middle East"}
	Products       = []string{"Laptop Pro", "Phone X", "Tablet Air", "Monitor Ultra", "Keyboard Elite", "Mouse Pro", "Headphones Max", "Charger Fast", "Case Premium", "Stand Adjustable"}
	Categories     = []string{"Electronics", "Accessories", "Computers", "Mobile"}
	PaymentMethods = []string{"Credit Card", "PayPal", "Bank Transfer", "Cash"}
	CustomerTypes  = []string{"New", "Returning", "VIP"}
)

// Sales describes the synthetic sales dataset.
func Sales() *Descriptor {
	return MustNew(SalesTable, []Column{
		{Name: "order_id", Role: RoleIdentifier, Type: "TEXT", Aliases: []string{"order ids", "order id"}, Description: "Unique order identifier"},
		{Name: "customer_id", Role: RoleIdentifier, Type: "TEXT", Aliases: []string{"customers", "customer", "buyers", "buyer", "clients", "client"}, Description: "Customer identifier"},
		{Name: "order_date", Role: RoleDate, Type: "DATE", Aliases: []string{"order date", "date"}, Description: "Date when order was placed"},
		{Name: "product", Role: RoleDimension, Type: "TEXT", Aliases: []string{"products", "product"}, Values: Products, Default: true, Description: "Product name"},
		{Name: "category", Role: RoleDimension, Type: "TEXT", Aliases: []string{"product categories", "product category", "categories", "category"}, Values: Categories, Description: "Product category"},
		{Name: "region", Role: RoleDimension, Type: "TEXT", Aliases: []string{"regions", "region", "markets", "market", "territories", "territory"}, Values: Regions, Description: "Sales region"},
		{Name: "quantity", Role: RoleMeasure, Type: "INTEGER", Aliases: []string{"quantity sold", "quantity", "quantities", "units sold", "units", "volume"}, Description: "Number of units sold"},
		{Name: "unit_price", Role: RoleMeasure, Type: "DOUBLE", Aliases: []string{"unit price", "unit prices", "price", "prices"}, Description: "Price per unit"},
		{Name: "total_sales", Role: RoleMeasure, Type: "DOUBLE", Aliases: []string{"total sales", "sales amount", "sales", "revenue", "revenues", "turnover", "income"}, Default: true, Description: "Total sales amount (quantity x unit_price)"},
		{Name: "cost_price", Role: RoleMeasure, Type: "DOUBLE", Aliases: []string{"cost price", "costs", "cost"}, Description: "Cost per unit"},
		{Name: "profit", Role: RoleMeasure, Type: "DOUBLE", Aliases: []string{"profit margin", "profits", "profit", "margin", "earnings"}, Description: "Profit per transaction"},
		{Name: "payment_method", Role: RoleDimension, Type: "TEXT", Aliases: []string{"payment methods", "payment method", "payment types", "payment type", "payments", "payment"}, Values: PaymentMethods, Description: "Payment method used"},
		{Name: "customer_type", Role: RoleDimension, Type: "TEXT", Aliases: []string{"customer types", "customer type", "customer segments", "customer segment", "segments", "segment"}, Values: CustomerTypes, Description: "Type of customer"},
		{Name: "discount", Role: RoleMeasure, Type: "DOUBLE", Aliases: []string{"discounts", "discount", "discount rate"}, Description: "Discount applied (decimal)"},
	})
}
