package persistence

import (
	"strings"
	"testing"

	"github.com/hexacore/hexacore/modules/entity/domain/ports"
	"github.com/hexacore/hexacore/pkg/httperr"
)

func TestBuildAggregateQuery_Count(t *testing.T) {
	query, args, err := buildAggregateQuery("org-a", ports.RelationEntities, ports.AggCount, "", []ports.FieldFilter{
		{Field: "type", Op: ports.FilterEquals, Value: "customer"},
		{Field: "status", Op: ports.FilterNotEquals, Value: "archived"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(query, "count(*)") {
		t.Fatalf("query=%q", query)
	}
	if !strings.Contains(query, "e.organization_id = $1") {
		t.Fatalf("missing org predicate: %q", query)
	}
	if len(args) != 3 || args[0] != "org-a" {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildAggregateQuery_SumJoinsDynamicFields(t *testing.T) {
	query, args, err := buildAggregateQuery("org-a", ports.RelationEntities, ports.AggSum, "price", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(query, "JOIN core.dynamic_fields") {
		t.Fatalf("query=%q", query)
	}
	// Field travels as a bound parameter, never as an identifier.
	if strings.Contains(query, "price") {
		t.Fatalf("field spliced into SQL: %q", query)
	}
	if len(args) != 2 || args[1] != "price" {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildAggregateQuery_TransactionTotal(t *testing.T) {
	query, _, err := buildAggregateQuery("org-a", ports.RelationTransactions, ports.AggAvg, "total", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(query, "avg(t.total)") {
		t.Fatalf("query=%q", query)
	}
}

func TestBuildAggregateQuery_UnknownFilterFieldRejected(t *testing.T) {
	_, _, err := buildAggregateQuery("org-a", ports.RelationEntities, ports.AggCount, "", []ports.FieldFilter{
		{Field: "name; DROP TABLE core.entities", Op: ports.FilterEquals, Value: "x"},
	})
	if err == nil || !httperr.IsValidation(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestBuildAggregateQuery_OrgFilterDropped(t *testing.T) {
	query, args, err := buildAggregateQuery("org-a", ports.RelationEntities, ports.AggCount, "", []ports.FieldFilter{
		{Field: "organization_id", Op: ports.FilterEquals, Value: "org-b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 1 || args[0] != "org-a" {
		t.Fatalf("args=%v", args)
	}
	if strings.Count(query, "organization_id") != 1 {
		t.Fatalf("org predicate duplicated or smuggled: %q", query)
	}
}

func TestBuildAggregateQuery_InFilter(t *testing.T) {
	query, args, err := buildAggregateQuery("org-a", ports.RelationTransactions, ports.AggCount, "", []ports.FieldFilter{
		{Field: "type", Op: ports.FilterIn, Value: []any{"sale", "refund"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(query, "= ANY($2)") {
		t.Fatalf("query=%q", query)
	}
	if len(args) != 2 {
		t.Fatalf("args=%v", args)
	}
}
