package sqlinline

const QInsertProject = `--sql ff3f68e7-7fe5-4340-a317-0ac64f34bbcf
insert into projects(
    id,
    user_id,
    type,
    status,
    source_key,
    compressed_url,
    caption_text,
    caption_srt,
    posts,
    resized_url,
    width,
    height,
    platforms,
    chain_posts,
    locale,
    error_message
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
`

const QSelectProjectForUser = `--sql cf936d18-b747-4a9f-a2b1-8eca29982dd3
select id, user_id, type, status, source_key,
       compressed_url, caption_text, caption_srt, posts, resized_url,
       width, height, platforms, chain_posts, locale,
       error_message, created_at, updated_at
from projects
where id = $1 and user_id = $2;
`

const QSelectProjectAny = `--sql 4a92d568-0981-489e-b7c6-92b7875be5ee
select id, user_id, type, status, source_key,
       compressed_url, caption_text, caption_srt, posts, resized_url,
       width, height, platforms, chain_posts, locale,
       error_message, created_at, updated_at
from projects
where id = $1;
`

const QListProjectsByUser = `--sql a39fc033-278a-4865-b90d-fc50780ca53b
select id, user_id, type, status, source_key,
       compressed_url, caption_text, caption_srt, posts, resized_url,
       width, height, platforms, chain_posts, locale,
       error_message, created_at, updated_at
from projects
where user_id = $1
order by created_at desc;
`

const QCompleteProcessing = `--sql a640030f-ef8e-4a04-87ac-6dc8716e729c
update projects
set status = $2,
    compressed_url = coalesce($3, compressed_url),
    caption_text = coalesce($4, caption_text),
    caption_srt = coalesce($5, caption_srt),
    posts = coalesce($6, posts),
    resized_url = coalesce($7, resized_url),
    error_message = coalesce($8, error_message),
    updated_at = now()
where id = $1 and status = 'processing';
`

const QCompleteProcessingAndChain = `--sql 3bb9d62c-d0d4-450f-8eb7-b159f8e9aeb2
with flipped as (
    update projects
    set status = $2,
        compressed_url = coalesce($3, compressed_url),
        caption_text = coalesce($4, caption_text),
        caption_srt = coalesce($5, caption_srt),
        posts = coalesce($6, posts),
        resized_url = coalesce($7, resized_url),
        error_message = coalesce($8, error_message),
        updated_at = now()
    where id = $1 and status = 'processing' and caption_text is null
    returning id
)
insert into outbox(id, project_id, kind, payload, status)
select gen_random_uuid(), id, $9, $10::jsonb, 'pending'
from flipped;
`

const QExpireStaleProjects = `--sql ad7f23b1-a58d-48d7-a195-9ee01093f752
update projects
set status = 'failed',
    error_message = $2,
    updated_at = now()
where status = 'processing' and updated_at < $1
returning id;
`

const QProjectExists = `--sql 43a41d08-626c-42f1-a30d-774e1f8f215e
select exists(select 1 from projects where id = $1);
`
