package sqlinline

const QClaimPendingOutbox = `--sql 732fa917-a718-4b1e-a339-cbb39cfdad37
with next_batch as (
    select id
    from outbox
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit $1
),
claimed as (
    update outbox
    set status = 'sending', claimed_at = now()
    where id in (select id from next_batch)
    returning id, project_id, kind, payload, status, created_at, claimed_at, sent_at
)
select id, project_id, kind, payload, status, created_at, claimed_at, sent_at
from claimed
order by created_at asc;
`

const QMarkOutboxSent = `--sql b8a7eeb3-4103-433c-b3d4-be2d60033ccc
update outbox
set status = 'sent', sent_at = now()
where id = $1 and status = 'sending';
`

const QRequeueOutbox = `--sql b834be71-30ed-4eb2-aeb3-8740b25e3bf7
update outbox
set status = 'pending', claimed_at = null
where id = $1 and status = 'sending';
`

const QRequeueStaleOutbox = `--sql 16bfaa2b-f746-4f74-a4ca-e3511ad46a7c
update outbox
set status = 'pending', claimed_at = null
where status = 'sending' and claimed_at < $1
returning id;
`
