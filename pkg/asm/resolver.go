package asm

import "fmt"

// topoSort orders modules so every import precedes its importer,
// using in-degree counting over the import graph. Modules left with a
// positive in-degree after the walk form a cycle.
func topoSort(modules []*Module) ([]*Module, error) {
	index := make(map[string]int, len(modules))
	for i, m := range modules {
		index[m.Name] = i
	}

	inDegree := make([]int, len(modules))
	dependents := make([][]int, len(modules))
	for i, m := range modules {
		for _, imp := range m.Imports {
			dep, ok := index[imp.Module]
			if !ok {
				return nil, fmt.Errorf("module %q imports unknown module %q", m.Name, imp.Module)
			}
			inDegree[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	var queue []int
	for i, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, i)
		}
	}

	sorted := make([]*Module, 0, len(modules))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		sorted = append(sorted, modules[i])
		for _, dep := range dependents[i] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(modules) {
		var stuck []string
		for i, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, modules[i].Name)
			}
		}
		return nil, &CyclicImportError{Modules: stuck}
	}

	return sorted, nil
}

// bindImports fills a module's symbol table with the values its import
// binding blocks make visible. It runs after layout and in topological
// order, so the export tables of dependencies are already complete.
func bindImports(m *Module, byName map[string]*Module) error {
	for _, imp := range m.Imports {
		for alias, binding := range imp.Bindings {
			if binding.Module == "" {
				m.symbols[alias] = binding.Value
				continue
			}
			ref := byName[binding.Module]
			if ref == nil {
				return &UnresolvedSymbolError{Module: m.Name, Symbol: binding.Module + "." + binding.Field}
			}
			value, ok := ref.exports[binding.Field]
			if !ok {
				return &UnresolvedSymbolError{Module: m.Name, Symbol: binding.Module + "." + binding.Field}
			}
			m.symbols[alias] = value
		}
	}
	return nil
}
