package csvparser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/mercado/internal/config"
	"golang.org/x/text/encoding/charmap"
)

func source(delimiter, encoding string) config.TableSource {
	return config.TableSource{
		HeaderRows:   1,
		DataStartRow: 2,
		CSVSettings:  config.CSVSettings{Delimiter: delimiter, Encoding: encoding},
	}
}

func TestParsePriceTable(t *testing.T) {
	data := "\ufeffProducto,1/3/2024,15/3/2024\n" +
		"Cebolla,\"S/. 2,80\",S/ 3.00\n" +
		",,\n" +
		"Arroz,4.20\n"

	table, err := Parse(strings.NewReader(data), "prices", source(",", "UTF-8"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if table.Name != "prices" || len(table.Headers) != 3 || table.Headers[0] != "Producto" {
		t.Fatalf("unexpected headers: %v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected the blank row to be skipped, got %d rows", len(table.Rows))
	}
	if table.Cell(0, 1) != "S/. 2,80" || table.Cell(0, 2) != "S/ 3.00" {
		t.Fatalf("unexpected first row: %v", table.Rows[0])
	}
	if table.Cell(1, 2) != "" || table.RowNumber(1) != 4 {
		t.Fatalf("unexpected short row: %v (row %d)", table.Rows[1], table.RowNumber(1))
	}
}

func TestParseSemicolonLatin1(t *testing.T) {
	utf8 := "Producto;Unidades por kg\nLimón;12\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().String(utf8)
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	table, err := Parse(bytes.NewBufferString(encoded), "equivalences", source(";", "ISO-8859-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Cell(0, 0) != "Limón" || table.Cell(0, 1) != "12" {
		t.Fatalf("expected decoded row, got %v", table.Rows)
	}
}

func TestParseTabDelimitedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lista.tsv")
	if err := os.WriteFile(path, []byte("Índice\tUnidad\tProducto\tCantidad\n1\tkg\tCebolla\t2\n"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	table, err := ParseFile(path, "requirements", source("tab", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Headers) != 4 || table.Cell(0, 2) != "Cebolla" {
		t.Fatalf("unexpected table: %+v", table)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader(""), "prices", source(",", "")); err == nil {
		t.Fatalf("expected an error for an empty file")
	}
	if _, err := Parse(strings.NewReader("a,b\n"), "prices", source(",", "EBCDIC")); err == nil {
		t.Fatalf("expected an error for an unsupported encoding")
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.csv"), "prices", source(",", "")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
