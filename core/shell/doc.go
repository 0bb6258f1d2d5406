// Package shell turns command lines into pipelines ready to execute.
//
// A line goes through these steps, loosely following
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
//
// 1. SplitOperators breaks the line at the &&, || ; and & control operators,
// and CheckSplit rejects misplaced operators or asks for another line.
//
// 2. Tokenize breaks each command into words, keeping quoted text intact and
// reporting unterminated quotes, substitutions and heredocs.
//
// 3. BuildPipeline splits the words at unquoted pipes into stages, moves
// heredocs and input files into Stage.Input and resolves output
// redirections with ResolveRedirections.
//
// No expansions are performed: words reach the program as written, minus
// their quotes.
package shell
