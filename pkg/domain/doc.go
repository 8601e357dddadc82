/*
Package domain contains the core models of the arbor tree visualization backend.

It defines the display-format search tree, the patch operations recorded while a
tree grows, the growth steps reconstructed from them and the per-iteration stage
data. This package is kept pure and free of I/O, following Hexagonal Architecture
principles.

# Key Entities

  - TreeNode: A display-format node (state label, statistics, ordered children).
  - NodeStatistics: Visit counters and per-role action statistics of a node.
  - TreePatch: An ordered batch of add/remove/replace operations for one growth step.
  - TreeGrowthStep: An immutable snapshot of a tree at one point of its growth.
  - IterationDetails: Selection, expansion, playout and backpropagation data of one iteration.
*/
package domain
