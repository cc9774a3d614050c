package testutil

import (
	"github.com/roach88/delegation/internal/ir"
	"github.com/roach88/delegation/internal/metadata"
)

// Sample catalog tables.
//
//	Accounts  full capabilities, lookup PrimaryContact -> Contacts
//	Contacts  full capabilities
//	Orders    elastic (OrderId, Region); filter, sort, top and count only
//	Notes     no capabilities; never delegable
//	Products  another data source, equality filters only, max rows 100
const (
	Accounts = "Accounts"
	Contacts = "Contacts"
	Orders   = "Orders"
	Notes    = "Notes"
	Products = "Products"
)

var allOps = metadata.AllFilterOps

var comparisons = []metadata.FilterOp{
	metadata.OpEq, metadata.OpNe, metadata.OpLt, metadata.OpLe, metadata.OpGt, metadata.OpGe,
	metadata.OpAnd, metadata.OpOr,
}

var numericAggregates = []metadata.AggregateKind{
	metadata.AggSum, metadata.AggAverage, metadata.AggMin, metadata.AggMax, metadata.AggCount,
}

var fullCapabilities = metadata.Capabilities{
	Filter: true, Sort: true, Top: true, Count: true,
	Distinct: true, Summarize: true, Join: true,
	FilterOperators: allOps,
}

// SampleCatalog returns a fresh linked catalog of the sample tables.
// Each call builds new tables, so tests may not observe each other.
func SampleCatalog() *metadata.Catalog {
	accounts := &metadata.Table{
		Name:         Accounts,
		Source:       "crm",
		PrimaryKey:   []string{"AccountId"},
		Capabilities: fullCapabilities,
		Columns: []metadata.Column{
			{Name: "AccountId", Kind: ir.KindGuid, Filterable: true, Sortable: true},
			{Name: "Name", Kind: ir.KindString, Filterable: true, Sortable: true, Groupable: true,
				Functions: []string{metadata.FuncStartsWith, metadata.FuncEndsWith}},
			{Name: "City", Kind: ir.KindString, Filterable: true, Sortable: true, Groupable: true},
			{Name: "Revenue", Kind: ir.KindNumber, Filterable: true, Sortable: true, Aggregates: numericAggregates},
			{Name: "Active", Kind: ir.KindBoolean, Filterable: true},
			{Name: "Created", Kind: ir.KindDate, Filterable: true, Sortable: true,
				Functions: []string{metadata.FuncYear, metadata.FuncMonth, metadata.FuncDay}},
			{Name: "Notes", Kind: ir.KindString},
			{Name: "PrimaryContactId", Kind: ir.KindGuid, Filterable: true},
			{Name: "PrimaryContact", Kind: ir.KindRecord, Filterable: true},
		},
		Relationships: []metadata.Relationship{
			{Field: "PrimaryContact", Target: Contacts, TargetKey: "ContactId", LocalKey: "PrimaryContactId"},
		},
	}
	contacts := &metadata.Table{
		Name:         Contacts,
		Source:       "crm",
		PrimaryKey:   []string{"ContactId"},
		Capabilities: fullCapabilities,
		Columns: []metadata.Column{
			{Name: "ContactId", Kind: ir.KindGuid, Filterable: true, Sortable: true},
			{Name: "FullName", Kind: ir.KindString, Filterable: true, Sortable: true,
				Functions: []string{metadata.FuncStartsWith}},
			{Name: "Email", Kind: ir.KindString, Filterable: true},
			{Name: "AccountId", Kind: ir.KindGuid, Filterable: true},
			{Name: "Age", Kind: ir.KindNumber, Filterable: true, Sortable: true, Groupable: true, Aggregates: numericAggregates},
		},
	}
	orders := &metadata.Table{
		Name:         Orders,
		Source:       "crm",
		PrimaryKey:   []string{"OrderId"},
		PartitionKey: "Region",
		Capabilities: metadata.Capabilities{
			Filter: true, Sort: true, Top: true, Count: true,
			FilterOperators: comparisons,
		},
		Columns: []metadata.Column{
			{Name: "OrderId", Kind: ir.KindString, Filterable: true, Sortable: true},
			{Name: "Region", Kind: ir.KindString, Filterable: true, Sortable: true},
			{Name: "Amount", Kind: ir.KindNumber, Filterable: true, Sortable: true},
			{Name: "AccountId", Kind: ir.KindGuid, Filterable: true},
		},
	}
	notes := &metadata.Table{
		Name:       Notes,
		Source:     "crm",
		PrimaryKey: []string{"NoteId"},
		Columns: []metadata.Column{
			{Name: "NoteId", Kind: ir.KindGuid},
			{Name: "Text", Kind: ir.KindString},
		},
	}
	products := &metadata.Table{
		Name:       Products,
		Source:     "erp",
		PrimaryKey: []string{"ProductId"},
		MaxRows:    100,
		Capabilities: metadata.Capabilities{
			Filter: true, Top: true, Join: true,
			FilterOperators: []metadata.FilterOp{metadata.OpEq},
		},
		Columns: []metadata.Column{
			{Name: "ProductId", Kind: ir.KindString, Filterable: true},
			{Name: "Title", Kind: ir.KindString, Filterable: true},
			{Name: "Price", Kind: ir.KindNumber, Filterable: true},
		},
	}

	cat, err := metadata.NewCatalog(accounts, contacts, orders, notes, products)
	if err != nil {
		panic(err)
	}
	if err := cat.Link(); err != nil {
		panic(err)
	}
	return cat
}
