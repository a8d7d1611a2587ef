package builtins

import "github.com/kaishlang/kaish/pkg/kaish/tools"

// Register wires every statically-known builtin into r, in the order
// spec §4.7's component table lists them, then adds help last since it
// needs r itself to answer introspection queries.
func Register(r *tools.Registry) {
	r.MustRegister(Echo{})
	r.MustRegister(Cat{})
	r.MustRegister(Ls{})
	r.MustRegister(Cd{})
	r.MustRegister(Pwd{})
	r.MustRegister(Mkdir{})
	r.MustRegister(Rm{})
	r.MustRegister(Write{})
	r.MustRegister(Exec{})
	r.MustRegister(Seq{})
	r.MustRegister(Grep{})
	r.MustRegister(Match{})
	r.MustRegister(Jq{})
	r.MustRegister(KaishAst{})
	r.MustRegister(KaishOutputLimit{})
	r.MustRegister(NewHelp(r))
}
