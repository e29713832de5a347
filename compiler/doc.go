/*

Process of compilation

Program Text ->
	parse ->
Abstract Syntax Tree (ast) ->
	lower (scope) ->
LLVM IR Module (ir) ->
	cfg.Verify ->
Checked Module ->
	exec.Run | print

Format goes the other way, from the tree back to canonical text.

*/
package compiler
