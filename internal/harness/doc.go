// Package harness runs conversation scenarios against the resolution
// engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed: 1
//	rules: ../rules            # optional directory, relative to the file
//	sentences:                 # scripted parses, "form head label; ..."
//	  repite tu nombre: "repite 0 root; tu 3 det; nombre 1 obj"
//	tricks:                    # added after the rules directory
//	  - given: { root: { form: hola } }
//	    then: { 200: "hola, ¿qué tal?" }
//	remote:                    # canned answers for GET/POST/PUT/DELETE tricks
//	  - method: GET
//	    uri: http://api/users/ana
//	    status: 200
//	    body: { name: Ana }
//	turns:
//	  - say: hola
//	    expect:
//	      status: "200"
//	      answer: "hola, ¿qué tal?"
//	      tricks: [0]
//	assertions:
//	  - type: trick_used
//	    trick: 0
//
// Text without a scripted parse is parsed flat: the first word is the
// root and every other word hangs from it.
//
// # Assertion Types
//
//   - trick_used: the trick was compiled in some turn
//   - trick_count: the trick was compiled exactly count times
//   - compile_order: the tricks were first compiled in this order
//   - status_count: exactly count turns ended with status
//
// # Deterministic Testing
//
// Every scenario runs with a seeded random source, a fixed resolution
// token and a scripted parser, so traces are identical across runs and
// can be compared with golden files.
package harness
