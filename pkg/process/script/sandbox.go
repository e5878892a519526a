package script

import (
	"fmt"

	"github.com/dop251/goja"
)

// applySandbox restricts a VM before any script code runs: Node-style
// globals are removed so scripts stay pure item transformations, and
// built-in prototypes are frozen to prevent one invocation from tampering
// with the next.
func applySandbox(vm *goja.Runtime) error {
	if err := removeDangerousGlobals(vm); err != nil {
		return fmt.Errorf("failed to remove dangerous globals: %w", err)
	}
	if err := freezeBuiltins(vm); err != nil {
		return fmt.Errorf("failed to freeze built-ins: %w", err)
	}
	return nil
}

// removeDangerousGlobals removes or restricts dangerous global objects
func removeDangerousGlobals(vm *goja.Runtime) error {
	dangerousGlobals := []string{
		"require",        // Node.js require
		"module",         // Node.js module
		"exports",        // Node.js exports
		"process",        // Node.js process
		"global",         // Node.js global
		"__dirname",      // Node.js __dirname
		"__filename",     // Node.js __filename
		"Buffer",         // Node.js Buffer
		"setImmediate",   // Node.js setImmediate
		"clearImmediate", // Node.js clearImmediate
	}

	for _, name := range dangerousGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	return nil
}

// freezeBuiltins freezes built-in objects to prevent modification
func freezeBuiltins(vm *goja.Runtime) error {
	builtins := []string{
		"Object",
		"Array",
		"Function",
		"String",
		"Number",
		"Boolean",
		"Date",
		"RegExp",
		"Error",
		"Math",
	}

	for _, name := range builtins {
		script := fmt.Sprintf(`
			if (typeof %s !== 'undefined') {
				Object.freeze(%s);
				if (%s.prototype) {
					Object.freeze(%s.prototype);
				}
			}
		`, name, name, name, name)

		if _, err := vm.RunString(script); err != nil {
			return fmt.Errorf("failed to freeze %s: %w", name, err)
		}
	}

	return nil
}
