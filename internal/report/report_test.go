package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"persistkit/internal/schema"
)

func reportRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	_, err := reg.Define("Widget", func(b *schema.Builder) {
		b.Table("Widgets")
		b.Column("Id", schema.TypeInt64).PrimaryKey()
		b.Column("Name", schema.TypeText).NotNull().Size(64)
		b.SoftDelete()
		b.Audit()
		b.Index("IX_Widgets_Name", schema.IndexColumn{Name: "Name"})
	})
	if err != nil {
		t.Fatalf("Define() error: %v", err)
	}
	return reg
}

func TestBuild(t *testing.T) {
	rep := Build(reportRegistry(t), schema.SQLite{})

	if rep.Dialect != "sqlite" {
		t.Errorf("Dialect = %s, want sqlite", rep.Dialect)
	}
	if len(rep.Types) != 1 {
		t.Fatalf("len(Types) = %d, want 1", len(rep.Types))
	}

	tr := rep.Types[0]
	if tr.Name != "Widget" || tr.Table != "Widgets" {
		t.Errorf("type = %s -> %s, want Widget -> Widgets", tr.Name, tr.Table)
	}
	if !tr.SoftDelete || !tr.Audit || tr.Expiry {
		t.Errorf("capabilities = soft:%t audit:%t expiry:%t, want soft and audit only",
			tr.SoftDelete, tr.Audit, tr.Expiry)
	}
	if len(tr.Columns) != 2 {
		t.Fatalf("len(Columns) = %d, want 2", len(tr.Columns))
	}
	if tr.Columns[1].SQLType != "VARCHAR(64)" {
		t.Errorf("Name SQLType = %s, want VARCHAR(64)", tr.Columns[1].SQLType)
	}
	if !strings.HasPrefix(tr.CreateTable, "CREATE TABLE IF NOT EXISTS Widgets") {
		t.Errorf("unexpected CreateTable: %s", tr.CreateTable)
	}
	if len(tr.Indexes) != 1 {
		t.Errorf("len(Indexes) = %d, want 1", len(tr.Indexes))
	}
	if !strings.Contains(tr.Update, "Version = Version + 1") {
		t.Errorf("Update template should bump the version: %s", tr.Update)
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json", "json"},
		{"yaml", "yaml"},
		{"text", "text"},
		{"", "text"}, // default
	}

	for _, tt := range tests {
		f, err := ForFormat(tt.name)
		if err != nil {
			t.Errorf("ForFormat(%q) error: %v", tt.name, err)
			continue
		}
		if f.Format() != tt.format {
			t.Errorf("ForFormat(%q).Format() = %s, want %s", tt.name, f.Format(), tt.format)
		}
	}

	if _, err := ForFormat("xml"); err == nil {
		t.Error("ForFormat(xml) should fail")
	}
}

func TestJSONFormatterRoundTrip(t *testing.T) {
	rep := Build(reportRegistry(t), schema.SQLite{})

	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Write(rep, &buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	var decoded SchemaReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(decoded.Types) != 1 || decoded.Types[0].Name != "Widget" {
		t.Errorf("decoded report lost the Widget type: %+v", decoded.Types)
	}
}

func TestYAMLFormatterRoundTrip(t *testing.T) {
	rep := Build(reportRegistry(t), schema.Postgres{})

	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Write(rep, &buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	var decoded SchemaReport
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded.Dialect != "postgres" {
		t.Errorf("Dialect = %s, want postgres", decoded.Dialect)
	}
}

func TestTextFormatter(t *testing.T) {
	rep := Build(reportRegistry(t), schema.SQLite{})

	var buf bytes.Buffer
	if err := (&TextFormatter{}).Write(rep, &buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Widget -> Widgets",
		"CREATE TABLE IF NOT EXISTS Widgets",
		"INSERT INTO Widgets",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}
