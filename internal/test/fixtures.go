// Package test generates random Python-shaped source fragments for property tests,
// the way the lineage this package is adapted from generates random token soup for
// its own toy-language lexer.
package test

import (
	"math/rand"
	"strings"
)

const validStatements = "x = 1;y = 2.5;z = \"a string\";w = True;print(x);def f(a, b=3):;class C:;    return a + b;import os;from os import path;if x == 1:;    pass;for i in range(10):;while True:;    break;# a comment\n;s = \"\"\"multi\nline\"\"\";t = (1, 2, 3);"

// RandomStatements returns size newline-joined Python-shaped statements, drawn (with
// replacement) from a small fixed pool spanning assignments, defs, classes, imports,
// control flow, comments, and a multi-line string literal.
func RandomStatements(size int) string {
	return RandomStatementsWithSep(size, "\n")
}

// RandomStatementsWithSep is RandomStatements with a caller-chosen joiner, useful for
// building a single physical line out of several token-level fragments.
func RandomStatementsWithSep(size int, sep string) string {
	valid := strings.Split(validStatements, ";")

	var stmts []string
	for len(stmts) < size {
		stmts = append(stmts, valid[rand.Intn(len(valid))])
	}

	return strings.Join(stmts, sep)
}
