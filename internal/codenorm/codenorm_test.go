package codenorm

import (
	"reflect"
	"testing"
)

func TestExtractDeclarations(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []string
	}{
		{
			name: "bare statements",
			code: "int x = 5;\nstring nombre = \"Ana\";",
			want: []string{"int x = 5", `string nombre = "Ana"`},
		},
		{
			name: "spacing is normalized",
			code: "int    x=5 ;\ndouble\tprecio   =  9.99;",
			want: []string{"int x = 5", "double precio = 9.99"},
		},
		{
			name: "comments are stripped",
			code: "// int a = 1;\nint b = 2; /* int c = 3; */\n/* multi\nline int d = 4; */ bool e = true;",
			want: []string{"int b = 2", "bool e = true"},
		},
		{
			name: "scaffold is stripped",
			code: `using System;
namespace Demo {
    public class Program {
        public static void Main(string[] args) {
            int edad = 20;
            var nombre = "Ana";
            Console.WriteLine(nombre);
        }
    }
}`,
			want: []string{"int edad = 20", `var nombre = "Ana"`},
		},
		{
			name: "control flow and keywords are dropped",
			code: "if (x > 1) { int y = 2; }\nreturn x;\nint z = 3;",
			want: []string{"int z = 3"},
		},
		{
			name: "declarations without assignment are dropped",
			code: "int x;\nstring s;\nchar c = 'a';",
			want: []string{"char c = 'a'"},
		},
		{
			name: "type keyword is case insensitive",
			code: "INT total = 10;",
			want: []string{"INT total = 10"},
		},
		{
			name: "no declarations",
			code: "Console.WriteLine(\"hola\");",
			want: nil,
		},
		{
			name: "empty input",
			code: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDeclarations(tt.code)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractDeclarations() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDeclarationsIsPure(t *testing.T) {
	code := "int a = 1; int b = 2;"
	first := ExtractDeclarations(code)
	second := ExtractDeclarations(code)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs: %q vs %q", first, second)
	}
}

func TestCanonical(t *testing.T) {
	in := []string{`string B = 'x'`, "int   a=1"}
	got := Canonical(in)
	want := []string{"int a = 1", `string b = "x"`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
	if in[0] != `string B = 'x'` {
		t.Error("Canonical() modified its input")
	}
}

func TestEqualExtractedDeclarations(t *testing.T) {
	expected := "int edad = 25;\nstring nombre = \"Ana\";\nbool activo = true;"

	tests := []struct {
		name      string
		submitted string
		want      bool
	}{
		{"identical", expected, true},
		{"reordered", "bool activo = true; int edad = 25; string nombre = \"Ana\";", true},
		{"different whitespace", "int edad=25;string   nombre =  \"Ana\";\n\n bool activo=true;", true},
		{"single quotes", "int edad = 25; string nombre = 'Ana'; bool activo = true;", true},
		{"different case", "INT EDAD = 25; STRING NOMBRE = \"ANA\"; BOOL ACTIVO = TRUE;", true},
		{"wrapped in scaffold", "class P { static void Main() { bool activo = true; int edad = 25; string nombre = \"Ana\"; } }", true},
		{"one missing", "int edad = 25; string nombre = \"Ana\";", false},
		{"one extra", expected + "\nint extra = 1;", false},
		{"different value", "int edad = 26; string nombre = \"Ana\"; bool activo = true;", false},
		{"nothing extractable", "Console.WriteLine(edad);", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Equal(ExtractDeclarations(tt.submitted), ExtractDeclarations(expected))
			if got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqualDuplicatesCount(t *testing.T) {
	a := []string{"int x = 1", "int x = 1"}
	b := []string{"int x = 1"}
	if Equal(a, b) {
		t.Error("Equal() treated a repeated declaration as a single one")
	}
}
