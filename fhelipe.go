/*
Package fhelipe implements the middle/back end of a compiler for
homomorphic-encryption programs over the CKKS scheme. It lowers a
tiled tensor program through a sequence of graph rewrites into a
scheduler-consumable dataflow description, tracking the HE-specific
cost model (ciphertext level, scale, bootstrapping) along the way.

The package is organized leaf-first:

  - tensor: shapes, indices and the small value types the rest of the
    module is built from.
  - layout: the slot-binding algebra that packs a tensor into
    ciphertext chunks.
  - dag: a typed DAG of ciphertext operations.
  - ctop: the ciphertext-operation variants that live in the DAG.
  - permutation: permutations and their cycle decomposition.
  - translate: the translation-mask lowering algorithm.
  - tensorop: tensor-level operations that rewrite into CtOp sub-DAGs.
  - decompose: the layout-conversion fan-out bound.
  - levelpass: level-minimization and bootstrap-placement passes.
  - schedule: the scheduler-facing textual emission format.
  - program: the pass interface and program context that ties the
    above together.
*/
package fhelipe
