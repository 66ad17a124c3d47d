// This is the bundler's runtime code. It contains helper functions that are
// automatically injected into output files to implement module interop
// between CommonJS and ES6 modules. Tree shaking automatically removes
// unused code from the runtime, the same as any other module in the graph.
package runtime

import (
	"github.com/module-linker/bundler/internal/logger"
)

// The runtime source is always at a special index. The index is always zero
// but this constant is always used instead to improve readability and ensure
// all code that references this index can be discovered easily.
const SourceIndex = uint32(0)

func code() string {
	return `
		var __defineProperty = Object.defineProperty
		var __hasOwnProperty = Object.prototype.hasOwnProperty
		var __getOwnPropertySymbols = Object.getOwnPropertySymbols
		var __propertyIsEnumerable = Object.prototype.propertyIsEnumerable

		// Wraps a CommonJS closure and returns a require() function. The module
		// is only evaluated the first time the returned function is called.
		export var __commonJS = (callback, module) => () => {
			if (!module) {
				module = {exports: {}}
				callback(module.exports, module)
			}
			return module.exports
		}

		// Wraps an ES6 module's statements in a lazily-evaluated init function,
		// mirroring __commonJS for the case where the module itself is ESM but
		// is imported from a CommonJS require() call.
		export var __esm = (callback, module) => () => {
			if (!module) {
				module = {exports: {}}
				callback(module.exports, module)
			}
			return module
		}

		var __markAsModule = target => __defineProperty(target, '__esModule', { value: true })

		// Used when an ES6 module is the target of a CommonJS require(): copies
		// every named export onto target as an enumerable getter and marks
		// target as an ES module; no separate default is added.
		export var __export = (target, all) => {
			__markAsModule(target)
			for (var name in all)
				__defineProperty(target, name, { get: all[name], enumerable: true })
		}

		// Re-exports every property of a CommonJS module's exports object,
		// skipping "default" and anything already defined on the target.
		export var __exportStar = (target, module) => {
			__markAsModule(target)
			if (module && typeof module === 'object')
				for (var key in module)
					if (!__hasOwnProperty.call(target, key) && key !== 'default')
						__defineProperty(target, key, { get: () => module[key], enumerable: true })
			return target
		}

		// Converts a CommonJS module's exports to an ES6 namespace object. If
		// the module already looks like an ES6 module (marked with __esModule),
		// it's returned unchanged.
		export var __toESM = module => {
			if (module && module.__esModule)
				return module
			return __exportStar(
				__defineProperty({}, 'default', { value: module, enumerable: true }),
				module)
		}

		// The inverse of __toESM: reads the "default" export back off, for
		// when an ES6 module needs to be handed to CommonJS-style code that
		// expects module.exports to be the thing itself.
		export var __toCommonJS = module => {
			return module && module.__esModule ? module.default : module
		}
	`
}

var Source = logger.Source{
	Index:          SourceIndex,
	KeyPath:        logger.Path{Text: "<runtime>"},
	PrettyPath:     "<runtime>",
	IdentifierName: "runtime",
	Contents:       code(),
}
