package test

import (
	"math/rand"
	"strings"
)

const validTokens = "fn;main;if;then;else;while;do;loop;defer;break;continue;(;);{;};[;];\"this is a string\";\"this is a longer string containing a bunch of text: Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.\";b\"bytes\";c\"cstr\";$\"interp {1} text\";'x';b'a';+;-;*;/;**;%;<<;>>;==;!=;<=;>=;->;>-;::;:;=;&;|;^;~;and;or;xor;not;123;321;0xff;0b1010;0o755;1_000_000;3.14;2e10;true;false;r;w;rw;//comment\n;\n"

func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}
