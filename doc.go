/*
Package custody defines the interfaces shared by all custody packages:
addresses, storage and the context helpers used to carry a logger.

A custody wallet is a pool of value controlled jointly by a fixed set of
owners. Any outgoing transfer must be approved by a quorum of owners before it
can be executed. The approval workflow lives in x/wallet, value accounting
for transfer destinations in x/cash and the storage implementations in store.
*/
package custody
