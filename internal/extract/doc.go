// Package extract resolves recipe fields from a parsed page.
//
// Each field is resolved by an explicit, ordered chain of sources. The first source that
// yields a non-empty value fills the field and later sources are never consulted for it,
// so the precedence between hero markup, embedded JSON-LD and meta tags lives in data
// (see Resolver.Chains) rather than in branching code.
package extract
